// Package proposalfile reads proposal batches from YAML files.
//
//	description: |
//	  # DIP-6
//	actions:
//	  - target: "@receiver"
//	    value: "1.5"                 # ether
//	    signature: receiveEth(string)
//	    args: ["gang"]
//	  - target: "0x..."
//	    calldata: "0x..."            # raw arguments, no selector
package proposalfile

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/yaml.v3"

	"github.com/dopedao/govsim/internal/domain"
	"github.com/dopedao/govsim/internal/usecase"
	"github.com/dopedao/govsim/pkg/units"
)

// ProposalFile is the YAML layout of a proposal batch
type ProposalFile struct {
	Description string       `yaml:"description"`
	Actions     []ActionSpec `yaml:"actions"`
}

// ActionSpec is one call of the batch
type ActionSpec struct {
	Target    string   `yaml:"target"`
	Value     string   `yaml:"value,omitempty"`
	Signature string   `yaml:"signature,omitempty"`
	Args      []string `yaml:"args,omitempty"`
	Calldata  string   `yaml:"calldata,omitempty"`
}

// Loader implements usecase.ProposalLoader
type Loader struct {
	projectRoot string
}

// NewLoader creates a loader resolving relative paths against projectRoot
func NewLoader(projectRoot string) *Loader {
	return &Loader{projectRoot: projectRoot}
}

// Load reads and parses the proposal file at path
func (l *Loader) Load(ctx context.Context, path string) (*domain.ProposalDraft, error) {
	if !filepath.IsAbs(path) && l.projectRoot != "" {
		path = filepath.Join(l.projectRoot, path)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: proposal file %s", domain.ErrNotFound, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read proposal file: %w", err)
	}
	draft, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return draft, nil
}

// Parse turns YAML data into a proposal draft
func Parse(data []byte) (*domain.ProposalDraft, error) {
	var file ProposalFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(file.Actions) == 0 {
		return nil, fmt.Errorf("%w: proposal has no actions", domain.ErrInvalidArgument)
	}

	draft := &domain.ProposalDraft{Description: strings.TrimSpace(file.Description)}
	for i, spec := range file.Actions {
		action, err := spec.draft()
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		draft.Actions = append(draft.Actions, action)
	}
	return draft, nil
}

func (s ActionSpec) draft() (domain.DraftAction, error) {
	if s.Target == "" {
		return domain.DraftAction{}, fmt.Errorf("%w: missing target", domain.ErrInvalidArgument)
	}
	value, err := units.ParseEther(s.Value)
	if err != nil {
		return domain.DraftAction{}, fmt.Errorf("%w: value: %v", domain.ErrInvalidArgument, err)
	}

	action := domain.DraftAction{Target: s.Target, Value: value, Signature: s.Signature}
	switch {
	case s.Calldata != "" && len(s.Args) > 0:
		return domain.DraftAction{}, fmt.Errorf("%w: set either args or calldata", domain.ErrInvalidArgument)
	case s.Calldata != "":
		if action.Calldata, err = hexutil.Decode(s.Calldata); err != nil {
			return domain.DraftAction{}, fmt.Errorf("%w: calldata: %v", domain.ErrInvalidArgument, err)
		}
	case len(s.Args) > 0 || s.Signature != "":
		if action.Calldata, err = EncodeArgs(s.Signature, s.Args); err != nil {
			return domain.DraftAction{}, err
		}
	}
	return action, nil
}

// EncodeArgs ABI-encodes args as the parameters of signature, without the
// selector.
func EncodeArgs(signature string, args []string) ([]byte, error) {
	types, err := paramTypes(signature)
	if err != nil {
		return nil, err
	}
	if len(types) != len(args) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", domain.ErrInvalidArgument, signature, len(types), len(args))
	}

	arguments := make(abi.Arguments, len(types))
	values := make([]any, len(types))
	for i, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidArgument, t, err)
		}
		arguments[i] = abi.Argument{Type: typ}
		if values[i], err = convertArg(typ, args[i]); err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, t, err)
		}
	}
	return arguments.Pack(values...)
}

func paramTypes(signature string) ([]string, error) {
	open := strings.IndexByte(signature, '(')
	if open <= 0 || !strings.HasSuffix(signature, ")") {
		return nil, fmt.Errorf("%w: malformed signature %q", domain.ErrInvalidArgument, signature)
	}
	inner := signature[open+1 : len(signature)-1]
	if inner == "" {
		return nil, nil
	}
	if strings.ContainsAny(inner, "()[]") {
		return nil, fmt.Errorf("%w: %q: tuple and array arguments need raw calldata", domain.ErrInvalidArgument, signature)
	}
	return strings.Split(inner, ","), nil
}

func convertArg(typ abi.Type, raw string) (any, error) {
	switch typ.T {
	case abi.AddressTy:
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("%w: invalid address %q", domain.ErrInvalidArgument, raw)
		}
		return common.HexToAddress(raw), nil
	case abi.UintTy, abi.IntTy:
		n, ok := new(big.Int).SetString(raw, 0)
		if !ok {
			return nil, fmt.Errorf("%w: invalid integer %q", domain.ErrInvalidArgument, raw)
		}
		if !fitsInt(typ, n) {
			return nil, fmt.Errorf("%w: %s overflows %s", domain.ErrInvalidArgument, n, typ)
		}
		if typ.Size > 64 {
			return n, nil
		}
		return sizedInt(typ, n)
	case abi.BoolTy:
		switch strings.ToLower(raw) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("%w: invalid bool %q", domain.ErrInvalidArgument, raw)
	case abi.StringTy:
		return raw, nil
	case abi.BytesTy:
		return hexutil.Decode(raw)
	case abi.FixedBytesTy:
		b, err := hexutil.Decode(raw)
		if err != nil {
			return nil, err
		}
		if typ.Size != 32 || len(b) != 32 {
			return nil, fmt.Errorf("%w: only 32 byte fixed arrays are supported", domain.ErrInvalidArgument)
		}
		return common.BytesToHash(b), nil
	}
	return nil, fmt.Errorf("%w: unsupported type %s", domain.ErrInvalidArgument, typ)
}

// fitsInt reports whether n is representable in typ: [0, 2^size) for
// unsigned types, [-2^(size-1), 2^(size-1)) for signed ones
func fitsInt(typ abi.Type, n *big.Int) bool {
	if typ.T == abi.UintTy {
		return n.Sign() >= 0 && n.BitLen() <= typ.Size
	}
	bound := new(big.Int).Lsh(big.NewInt(1), uint(typ.Size-1))
	return n.Cmp(bound) < 0 && n.Cmp(new(big.Int).Neg(bound)) >= 0
}

// sizedInt converts n, already range checked, to the Go type go-ethereum packs for small integers
func sizedInt(typ abi.Type, n *big.Int) (any, error) {
	if typ.T == abi.UintTy {
		v := n.Uint64()
		switch typ.Size {
		case 8:
			return uint8(v), nil
		case 16:
			return uint16(v), nil
		case 32:
			return uint32(v), nil
		case 64:
			return v, nil
		}
	} else {
		v := n.Int64()
		switch typ.Size {
		case 8:
			return int8(v), nil
		case 16:
			return int16(v), nil
		case 32:
			return int32(v), nil
		case 64:
			return v, nil
		}
	}
	// odd sizes such as uint24 pack from *big.Int
	return n, nil
}

var _ usecase.ProposalLoader = (*Loader)(nil)
