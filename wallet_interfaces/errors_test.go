package walletif

import (
	"errors"
	"fmt"
	"testing"
)

func TestMessageTableCoversAllCodes(t *testing.T) {
	for code := NotInitialized; code <= BadTransactionExtra; code++ {
		msg := code.Message()
		if msg == "" || msg == "Unknown error" {
			t.Errorf("code %d has no message", code)
		}
	}
	if Ok.Message() != "" {
		t.Errorf("Ok should have no message, got %q", Ok.Message())
	}
	if (BadTransactionExtra + 1).Message() != "Unknown error" {
		t.Error("out-of-range code should map to the generic message")
	}
}

func TestKnownMessages(t *testing.T) {
	cases := map[ErrorCode]string{
		WrongPassword: "The password is wrong",
		BadAddress:    "Bad address",
		FeeTooSmall:   "Transaction fee is too small",
		BadPaymentID:  "Wrong payment id format",
	}
	for code, want := range cases {
		if got := code.Message(); got != want {
			t.Errorf("code %d message %q, want %q", code, got, want)
		}
	}
}

func TestErrorCodeIsAnError(t *testing.T) {
	var err error = WrongPassword
	if err.Error() != WrongPassword.Message() {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, WrongPassword) {
		t.Error("errors.Is does not match the same code")
	}
	if errors.Is(err, BadAddress) {
		t.Error("errors.Is matched a different code")
	}
}

func TestCodeOf(t *testing.T) {
	if code, ok := CodeOf(nil); !ok || code != Ok {
		t.Errorf("CodeOf(nil) = (%v, %v)", code, ok)
	}

	wrapped := fmt.Errorf("open wallet: %w", WrongPassword)
	if code, ok := CodeOf(wrapped); !ok || code != WrongPassword {
		t.Errorf("CodeOf(wrapped) = (%v, %v)", code, ok)
	}

	if code, ok := CodeOf(errors.New("plain")); ok || code != InternalError {
		t.Errorf("CodeOf(plain) = (%v, %v)", code, ok)
	}
}
