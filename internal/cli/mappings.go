package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/provider"
	"github.com/roach88/pgxlate/internal/typemap"
)

// MappingsOptions holds flags for the mappings command.
type MappingsOptions struct {
	*RootOptions
	StoreType string
	HostType  string
}

// MappingInfo describes one registry mapping.
type MappingInfo struct {
	StoreType string `json:"store_type"`
	HostType  string `json:"host_type"`
	Kind      string `json:"kind"`
	Element   string `json:"element,omitempty"`
	Subtype   string `json:"subtype,omitempty"`
}

// NewMappingsCommand creates the mappings command.
func NewMappingsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MappingsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "List or look up type mappings",
		Long: `List the type-mapping registry built from the provider options, or look
up the mapping for a single store type or host type.

Examples:
  pgxlate mappings
  pgxlate mappings --store "character varying(20)"
  pgxlate mappings --host "Range<int>" --config pg14.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMappings(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.StoreType, "store", "", "look up a store type")
	cmd.Flags().StringVar(&opts.HostType, "host", "", "look up a host type")
	cmd.MarkFlagsMutuallyExclusive("store", "host")

	return cmd
}

func runMappings(opts *MappingsOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	options, err := opts.options()
	if err != nil {
		return outputLoadError(formatter, err)
	}
	p, err := provider.New(options, provider.WithLogger(opts.logger()))
	if err != nil {
		return outputCommandError(formatter, ErrCodeConfig, "failed to create provider", err)
	}
	reg := p.Registry()

	var mappings []*typemap.Mapping
	switch {
	case opts.StoreType != "":
		m := reg.FindMappingByStoreType(opts.StoreType)
		if m == nil {
			return unknownTypeError(formatter, "store type", opts.StoreType)
		}
		mappings = append(mappings, m)
	case opts.HostType != "":
		t, err := hosttype.Parse(opts.HostType)
		if err != nil {
			return outputCommandError(formatter, ErrCodeUnknownType, "invalid host type", err)
		}
		m := reg.FindMapping(t)
		if m == nil {
			return unknownTypeError(formatter, "host type", opts.HostType)
		}
		mappings = append(mappings, m)
	default:
		mappings = reg.Mappings()
	}
	formatter.VerboseLog("%d mapping(s)", len(mappings))

	if opts.Format == "json" {
		infos := make([]MappingInfo, len(mappings))
		for i, m := range mappings {
			infos[i] = describeMapping(m)
		}
		return formatter.Success(infos)
	}
	for _, m := range mappings {
		fmt.Fprintln(formatter.Writer, typemap.Describe(m))
	}
	return nil
}

func describeMapping(m *typemap.Mapping) MappingInfo {
	info := MappingInfo{
		StoreType: m.StoreType(),
		HostType:  m.ClrType().String(),
		Kind:      m.Kind().String(),
	}
	if e := m.ElementMapping(); e != nil {
		info.Element = e.StoreType()
	}
	if s := m.SubtypeMapping(); s != nil {
		info.Subtype = s.StoreType()
	}
	return info
}

func unknownTypeError(formatter *OutputFormatter, what, name string) error {
	msg := fmt.Sprintf("no mapping for %s %q", what, name)
	_ = formatter.Error(ErrCodeUnknownType, msg, nil)
	return NewExitError(ExitFailure, msg)
}
