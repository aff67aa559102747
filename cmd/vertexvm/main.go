// Command vertexvm loads and runs a WebAssembly module from the
// command line, invoking one exported function and printing its
// results.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/sha3"

	"github.com/vertexvm/vertexvm/linker"
	"github.com/vertexvm/vertexvm/value"
	"github.com/vertexvm/vertexvm/vm"
	"github.com/vertexvm/vertexvm/wasm"
)

var (
	entry      string
	argStrings []string
	gasLimit   uint64
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:   "vertexvm [module.wasm]",
		Short: "run a WebAssembly module",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	root.Flags().StringVar(&entry, "invoke", "", "exported function to invoke (defaults to the start function only)")
	root.Flags().StringArrayVar(&argStrings, "arg", nil, "i32 argument, repeatable, in call order")
	root.Flags().Uint64Var(&gasLimit, "gas", 0, "metered gas limit (0 disables metering)")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "log instantiation details")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := logrus.New()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	opts := []vm.Option{vm.WithLogger(logger)}
	if gasLimit > 0 {
		opts = append(opts, vm.WithGasPolicy(&vm.SimpleGasPolicy{}, gasLimit))
	}

	registry := linker.NewRegistry()
	kv := newKVStoreHost()
	registry.Register("env", kv)

	path := args[0]
	instance, err := vm.NewFromFile(path, path, registry, opts...)
	if err != nil {
		return fmt.Errorf("instantiate %s: %w", path, err)
	}
	kv.bind(instance)
	logger.WithField("module", path).Debug("instantiated")

	if entry == "" {
		return nil
	}

	fnIdx, err := instance.GetFunctionIndex(entry)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", entry, err)
	}
	callArgs, err := parseArgs(argStrings)
	if err != nil {
		return err
	}
	results, err := instance.Invoke(fnIdx, callArgs...)
	if err != nil {
		return fmt.Errorf("invoke %s: %w", entry, err)
	}
	for i, r := range results {
		fmt.Printf("result[%d] = %s\n", i, formatVal(r))
	}
	return nil
}

func parseArgs(raw []string) ([]value.Val, error) {
	out := make([]value.Val, len(raw))
	for i, s := range raw {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("arg %d %q: %w", i, s, err)
		}
		out[i] = value.I32Val(int32(n))
	}
	return out, nil
}

func formatVal(v value.Val) string {
	switch v.T {
	case value.I32:
		return strconv.FormatInt(int64(v.AsI32()), 10)
	case value.I64:
		return strconv.FormatInt(v.AsI64(), 10)
	case value.F32:
		return strconv.FormatFloat(float64(v.AsF32()), 'g', -1, 32)
	case value.F64:
		return strconv.FormatFloat(v.AsF64(), 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// kvStoreHost is a demo "env" import module exposing a process-local
// key/value store to guest modules, keyed by sha3-256 digest. It
// stands in for the kind of host-provided persistence a real embedder
// wires in place of a database or chain state trie.
type kvStoreHost struct {
	*linker.HostModule
	vm    *vm.VM
	store map[[32]byte][]byte
}

func newKVStoreHost() *kvStoreHost {
	h := &kvStoreHost{HostModule: linker.NewHostModule("env"), store: map[[32]byte][]byte{}}

	i32 := value.I32
	setType := wasm.FuncType{Params: []wasm.ValueType{i32, i32, i32, i32}}
	getType := wasm.FuncType{Params: []wasm.ValueType{i32, i32, i32}, Results: []wasm.ValueType{i32}}
	sizeType := wasm.FuncType{Params: []wasm.ValueType{i32, i32}, Results: []wasm.ValueType{i32}}

	h.AddFunc("set_storage", setType, h.setStorage)
	h.AddFunc("get_storage", getType, h.getStorage)
	h.AddFunc("get_value_size", sizeType, h.getValueSize)
	return h
}

// bind gives the host module a way to reach back into the calling
// VM's linear memory. A module's start function running during
// instantiation cannot call these host functions, since bind only
// runs once NewFromFile returns; every other call path can.
func (h *kvStoreHost) bind(v *vm.VM) { h.vm = v }

func (h *kvStoreHost) readAt(ptr, size int32) ([]byte, error) {
	if h.vm == nil {
		return nil, fmt.Errorf("kvstore: not bound to a VM")
	}
	buf := make([]byte, size)
	if _, err := h.vm.MemRead(buf, uint64(uint32(ptr))); err != nil {
		return nil, err
	}
	return buf, nil
}

func (h *kvStoreHost) setStorage(args []value.Val) ([]value.Val, error) {
	key, err := h.readAt(args[0].AsI32(), args[1].AsI32())
	if err != nil {
		return nil, err
	}
	val, err := h.readAt(args[2].AsI32(), args[3].AsI32())
	if err != nil {
		return nil, err
	}
	h.store[sha3.Sum256(key)] = append([]byte(nil), val...)
	return nil, nil
}

func (h *kvStoreHost) getStorage(args []value.Val) ([]value.Val, error) {
	key, err := h.readAt(args[0].AsI32(), args[1].AsI32())
	if err != nil {
		return nil, err
	}
	val := h.store[sha3.Sum256(key)]
	if len(val) > 0 {
		if _, err := h.vm.MemWrite(val, uint64(uint32(args[2].AsI32()))); err != nil {
			return nil, err
		}
	}
	return []value.Val{args[2]}, nil
}

func (h *kvStoreHost) getValueSize(args []value.Val) ([]value.Val, error) {
	key, err := h.readAt(args[0].AsI32(), args[1].AsI32())
	if err != nil {
		return nil, err
	}
	return []value.Val{value.I32Val(int32(len(h.store[sha3.Sum256(key)])))}, nil
}
