package simchain

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dopedao/govsim/internal/domain"
)

// Contract is code deployed on the chain. Snapshot returns a deep copy of
// the contract's state and Restore installs one previously returned.
type Contract interface {
	Methods() Methods
	Snapshot() any
	Restore(state any)
}

// Handler runs a method with ABI-decoded arguments.
type Handler func(env *Env, args []any) ([]byte, error)

// Method is an externally callable function. An empty Signature is the
// receive function for plain value transfers.
type Method struct {
	Signature string
	Inputs    abi.Arguments
	Payable   bool
	Handler   Handler
}

// Methods is a contract's dispatch table keyed by canonical signature.
type Methods map[string]Method

// NewMethods builds a dispatch table.
func NewMethods(methods ...Method) Methods {
	m := make(Methods, len(methods))
	for _, method := range methods {
		m[method.Signature] = method
	}
	return m
}

// Func declares a non-payable method. Input types are parsed from the signature.
func Func(signature string, h Handler) Method {
	return Method{Signature: signature, Inputs: MustArguments(ParamTypes(signature)...), Handler: h}
}

// PayableFunc declares a payable method.
func PayableFunc(signature string, h Handler) Method {
	m := Func(signature, h)
	m.Payable = true
	return m
}

// Receive declares the plain value transfer handler.
func Receive(h Handler) Method {
	return Method{Payable: true, Handler: h}
}

func (m Methods) bySelector(selector []byte) (Method, bool) {
	for sig, method := range m {
		if sig != "" && bytes.Equal(Selector(sig), selector) {
			return method, true
		}
	}
	return Method{}, false
}

// Selector returns the 4-byte function selector of a canonical signature.
func Selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// ParamTypes splits "transfer(address,uint256)" into ["address", "uint256"].
// Tuple parameters are not supported.
func ParamTypes(signature string) []string {
	open := strings.IndexByte(signature, '(')
	if open < 0 || !strings.HasSuffix(signature, ")") {
		return nil
	}
	inner := signature[open+1 : len(signature)-1]
	if inner == "" {
		return nil
	}
	return strings.Split(inner, ",")
}

// MustArguments builds ABI arguments from type names and panics on an unknown type.
func MustArguments(types ...string) abi.Arguments {
	args, err := Arguments(types...)
	if err != nil {
		panic(err)
	}
	return args
}

// Arguments builds ABI arguments from type names.
func Arguments(types ...string) (abi.Arguments, error) {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		typ, err := abi.NewType(strings.TrimSpace(t), "", nil)
		if err != nil {
			return nil, fmt.Errorf("abi type %q: %w", t, err)
		}
		args[i] = abi.Argument{Name: fmt.Sprintf("arg%d", i), Type: typ}
	}
	return args, nil
}

// EncodeCall packs args for signature, without the selector, the way a
// timelock action carries its data.
func EncodeCall(signature string, args ...any) ([]byte, error) {
	inputs, err := Arguments(ParamTypes(signature)...)
	if err != nil {
		return nil, err
	}
	return inputs.Pack(args...)
}

// Uint64 narrows a decoded uint256 argument. A value that does not fit
// reverts with reason rather than wrapping around.
func Uint64(v any, reason string) (uint64, error) {
	n := v.(*big.Int)
	if !n.IsUint64() {
		return 0, domain.Revert(domain.ErrInvalidArgument, reason)
	}
	return n.Uint64(), nil
}

// Uint64s narrows every element of a decoded uint256[] argument.
func Uint64s(v any, reason string) ([]uint64, error) {
	in := v.([]*big.Int)
	out := make([]uint64, len(in))
	for i, n := range in {
		u, err := Uint64(n, reason)
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}

const unrecognizedSelector = "function selector was not recognized and there's no fallback function"

func dispatch(env *Env, target Contract, signature string, data []byte) ([]byte, error) {
	methods := target.Methods()

	var method Method
	switch {
	case signature == "" && len(data) == 0:
		m, ok := methods[""]
		if !ok {
			return nil, domain.Revert(domain.ErrInvalidArgument, unrecognizedSelector)
		}
		method = m
	case signature == "":
		if len(data) < 4 {
			return nil, domain.Revert(domain.ErrInvalidArgument, unrecognizedSelector)
		}
		m, ok := methods.bySelector(data[:4])
		if !ok {
			return nil, domain.Revert(domain.ErrInvalidArgument, unrecognizedSelector)
		}
		method, data = m, data[4:]
	default:
		m, ok := methods[signature]
		if !ok {
			return nil, domain.Revert(domain.ErrInvalidArgument, unrecognizedSelector)
		}
		method = m
	}

	if !method.Payable && env.Value.Sign() > 0 {
		return nil, domain.Revert(domain.ErrInvalidArgument, "non-payable function was called with value")
	}

	args, err := method.Inputs.Unpack(data)
	if err != nil {
		return nil, &domain.RevertError{
			Reason: fmt.Sprintf("invalid calldata for %s", method.Signature),
			Kind:   domain.ErrInvalidArgument,
			Cause:  err,
		}
	}
	return method.Handler(env, args)
}
