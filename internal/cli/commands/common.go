// Package commands implements the machpatch subcommands.
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lateralusd/machpatch"
	"github.com/lateralusd/machpatch/internal/cli/config"
)

// patchOptions maps the loaded configuration onto machpatch options.
func patchOptions(cmd *cobra.Command) ([]machpatch.Option, error) {
	cfg := config.FromContext(cmd.Context())
	cpu, err := cfg.CPUType()
	if err != nil {
		return nil, err
	}
	return []machpatch.Option{
		machpatch.WithLibrary(cfg.Library),
		machpatch.WithCPU(cpu),
		machpatch.WithLogger(config.GetLogger(cmd.Context())),
	}, nil
}

func parseLoadType(s string) (machpatch.LoadType, error) {
	switch strings.ToLower(s) {
	case "dylib", "":
		return machpatch.DYLIB, nil
	case "weak":
		return machpatch.WEAK, nil
	case "rpath":
		return machpatch.RPATH, nil
	}
	return 0, fmt.Errorf("unknown load type %q (want dylib, weak or rpath)", s)
}
