package walletif

import "errors"

// ErrorCode is the closed set of failure kinds the engine reports, both
// from synchronous calls and from completion callbacks. Ok is zero so a
// zero-valued callback argument means success.
type ErrorCode int

const (
	Ok ErrorCode = iota
	NotInitialized
	WrongPassword
	AlreadyInitialized
	InternalError
	MixinTooBig
	BadAddress
	TransactionTooBig
	WrongAmount
	SumOverflow
	ZeroDestination
	CancelImpossible
	TransferImpossible
	WrongState
	OperationCancelled
	WrongVersion
	FeeTooSmall
	KeyGenerationError
	IndexOutOfRange
	AddressAlreadyExists
	TrackingMode
	WrongParameters
	ObjectNotFound
	WalletNotFound
	ChangeAddressRequired
	ChangeAddressNotFound
	DestinationAddressRequired
	DestinationAddressNotFound
	BadPaymentID
	BadTransactionExtra
)

// Message resolves the user-facing text for a code. Unknown codes get a
// generic message rather than an empty string so callbacks can always
// forward something displayable.
func (c ErrorCode) Message() string {
	switch c {
	case Ok:
		return ""
	case NotInitialized:
		return "Object was not initialized"
	case WrongPassword:
		return "The password is wrong"
	case AlreadyInitialized:
		return "The object is already initialized"
	case InternalError:
		return "Internal error occurred"
	case MixinTooBig:
		return "MixIn count is too big"
	case BadAddress:
		return "Bad address"
	case TransactionTooBig:
		return "Transaction size is too big"
	case WrongAmount:
		return "Wrong amount"
	case SumOverflow:
		return "Sum overflow"
	case ZeroDestination:
		return "The destination is empty"
	case CancelImpossible:
		return "Impossible to cancel transaction"
	case TransferImpossible:
		return "Transaction transfer impossible"
	case WrongState:
		return "The wallet is in wrong state (maybe loading or saving), try again later"
	case OperationCancelled:
		return "The operation you've requested has been cancelled"
	case WrongVersion:
		return "Wrong version"
	case FeeTooSmall:
		return "Transaction fee is too small"
	case KeyGenerationError:
		return "Cannot generate new key"
	case IndexOutOfRange:
		return "Index is out of range"
	case AddressAlreadyExists:
		return "Address already exists"
	case TrackingMode:
		return "The wallet is in tracking mode"
	case WrongParameters:
		return "Wrong parameters passed"
	case ObjectNotFound:
		return "Object not found"
	case WalletNotFound:
		return "Requested wallet not found"
	case ChangeAddressRequired:
		return "Change address required"
	case ChangeAddressNotFound:
		return "Change address not found"
	case DestinationAddressRequired:
		return "Destination address required"
	case DestinationAddressNotFound:
		return "Destination address not found"
	case BadPaymentID:
		return "Wrong payment id format"
	case BadTransactionExtra:
		return "Wrong transaction extra format"
	default:
		return "Unknown error"
	}
}

// Error makes non-Ok codes usable as ordinary Go errors at the engine
// boundary.
func (c ErrorCode) Error() string {
	return c.Message()
}

// CodeOf extracts an ErrorCode from an error chain. The second return is
// false when the error carries no engine code at all.
func CodeOf(err error) (ErrorCode, bool) {
	if err == nil {
		return Ok, true
	}
	var code ErrorCode
	if errors.As(err, &code) {
		return code, true
	}
	return InternalError, false
}
