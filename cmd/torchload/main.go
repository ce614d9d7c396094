// Package main provides the torchload container inspection CLI.
package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/born-ml/torchload/internal/container"
	"github.com/born-ml/torchload/internal/pickle"
	"github.com/born-ml/torchload/internal/serialization"
	"github.com/born-ml/torchload/internal/types"
	"github.com/born-ml/torchload/internal/value"
)

const version = "v0.1.0-dev"

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()

	args := os.Args[1:]
	if len(args) > 0 && (args[0] == "-v" || args[0] == "--verbose") {
		log = log.Level(zerolog.DebugLevel)
		args = args[1:]
	}

	if len(args) == 0 {
		usage()
		return
	}

	switch args[0] {
	case "version":
		fmt.Printf("torchload %s\n", version)
	case "inspect":
		if len(args) < 2 {
			usage()
			os.Exit(2)
		}
		if err := inspect(log, args[1]); err != nil {
			log.Error().Err(err).Str("container", args[1]).Msg("inspect failed")
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("torchload - model container inspector")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  torchload [-v] inspect <file.pt>   List records, extra files and constants")
	fmt.Println("  torchload version                  Show version")
}

func inspect(log zerolog.Logger, path string) error {
	r, err := container.OpenFile(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.Close()
	}()

	if r.HasRecord(serialization.LegacyMarker) {
		fmt.Println("format: legacy (model.json)")
		return nil
	}
	if v, err := r.GetRecord("version"); err == nil {
		fmt.Printf("format: container v%s\n", strings.TrimSpace(string(v)))
	}

	fmt.Println("records:")
	for _, name := range r.Records() {
		data, err := r.GetRecord(name)
		if err != nil {
			return err
		}
		fmt.Printf("  %-40s %8d bytes\n", name, len(data))
		if strings.HasPrefix(name, "extra/") {
			log.Debug().Str("record", name).Str("content", string(data)).Msg("extra file")
		}
	}

	constants, err := readConstants(log, r)
	if err != nil {
		return err
	}
	fmt.Printf("constants: %d\n", len(constants))
	for i, c := range constants {
		if c.Kind() != value.KindTensor {
			fmt.Printf("  %3d: %s\n", i, c)
			continue
		}
		fmt.Printf("  %3d: %s %v (storage %q)\n", i, c.Tensor().DType(), c.Tensor().Shape(), c.Tensor().StorageKey())
	}
	return nil
}

// readConstants decodes the constants archive only. It needs no type
// loader: the archive holds tensors, never class instances.
func readConstants(log zerolog.Logger, r *container.Reader) ([]value.Value, error) {
	data, err := r.GetRecord("constants.pkl")
	if err != nil {
		return nil, err
	}
	log.Debug().Int("bytes", len(data)).Msg("decoding constants archive")

	u := pickle.NewUnpickler(bytes.NewReader(data), pickle.Config{
		Archive: "constants",
		Resolver: types.NewResolver(types.LoaderFunc(func(name string) (*value.Class, error) {
			return nil, fmt.Errorf("constants archive references class %q", name)
		})),
		Builder: types.NewBuilder(),
		ReadRecord: func(key string) ([]byte, error) {
			return r.GetRecord("constants/" + key)
		},
	})
	root, err := u.Parse()
	if err != nil {
		return nil, err
	}
	if root.Kind() != value.KindTuple && root.Kind() != value.KindList {
		return nil, fmt.Errorf("constants root is %s, want a sequence", root.Kind())
	}
	return root.List().Elems, nil
}
