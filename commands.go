package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfg "github.com/maastricht-university/edmo-corpus/config"
	"github.com/maastricht-university/edmo-corpus/corpus"
	"github.com/maastricht-university/edmo-corpus/orchestrator"
)

type app struct {
	configPath string
	basePath   string
	logLevel   string

	conf *cfg.Root
	out  io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:           "edmo-corpus",
		Short:         "Build and inspect stored conversational corpora",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default config/$CONFIG_ENV/config.yaml)")
	root.PersistentFlags().StringVar(&a.basePath, "base-path", "", "directory corpora are stored under")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(a.buildCmd(), a.showCmd(), a.dropCmd(), a.listCmd())
	return root
}

func (a *app) setup() error {
	conf, err := cfg.Load(a.configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if a.basePath != "" {
		conf.Storage.BasePath = a.basePath
	}
	if a.logLevel != "" {
		conf.Pipeline.LogLvl = a.logLevel
	}
	if err := conf.Validate(); err != nil {
		return errors.Wrap(err, "config")
	}
	lvl, _ := logrus.ParseLevel(conf.Pipeline.LogLvl)
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	a.conf = conf
	return nil
}

const storageUsage = "storage type (default from config): db, or mem which only lives " +
	"for the current process and is empty in a fresh CLI run"

func (a *app) storageFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVar(dst, "storage", "", storageUsage)
}

func (a *app) storageType(flag string) (corpus.StorageType, error) {
	if flag == "" {
		return a.conf.StorageType(), nil
	}
	return corpus.ParseStorageType(flag)
}

func (a *app) buildCmd() *cobra.Command {
	var opt orchestrator.RunOptions
	cmd := &cobra.Command{
		Use:   "build <transcript.json>",
		Short: "Build a corpus from a transcript and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := orchestrator.NewPipeline(a.conf).Run(cmd.Context(), args[0], opt)
			if res != nil {
				// stored even when the summary failed
				if _, perr := fmt.Fprintln(a.out, res.Summary.CorpusID); perr != nil && err == nil {
					err = perr
				}
			}
			return errors.Wrapf(err, "build %s", args[0])
		},
	}
	cmd.Flags().StringVar(&opt.CorpusID, "id", "", "corpus id (default: generated)")
	cmd.Flags().BoolVar(&opt.NoParse, "no-parse", false, "skip the dependency parser")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	var storage, format string
	cmd := &cobra.Command{
		Use:   "show <corpus-id>",
		Short: "Print a stored corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.storageType(storage)
			if err != nil {
				return err
			}
			c, err := corpus.Open(cmd.Context(), args[0], st, corpus.WithBasePath(a.conf.Storage.BasePath))
			if err != nil {
				return errors.Wrapf(err, "open %s", args[0])
			}
			snap := c.Snapshot()
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(a.out)
				enc.SetIndent(2)
				if err := enc.Encode(snap); err != nil {
					return errors.Wrap(err, "render yaml")
				}
				return enc.Close()
			case "json":
				b, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return errors.Wrap(err, "render json")
				}
				_, err = fmt.Fprintln(a.out, string(b))
				return err
			}
			return errors.Errorf("unknown format %q", format)
		},
	}
	a.storageFlag(cmd, &storage)
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	return cmd
}

func (a *app) dropCmd() *cobra.Command {
	var storage string
	cmd := &cobra.Command{
		Use:   "drop <corpus-id>",
		Short: "Delete a stored corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.storageType(storage)
			if err != nil {
				return err
			}
			c, err := corpus.Open(cmd.Context(), args[0], st, corpus.WithBasePath(a.conf.Storage.BasePath))
			if err != nil {
				return errors.Wrapf(err, "open %s", args[0])
			}
			return errors.Wrapf(c.Drop(cmd.Context()), "drop %s", args[0])
		},
	}
	a.storageFlag(cmd, &storage)
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var storage string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored corpus ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.storageType(storage)
			if err != nil {
				return err
			}
			be, err := corpus.OpenBackend(st, a.conf.Storage.BasePath)
			if err != nil {
				return err
			}
			ids, err := be.List(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "list")
			}
			for _, id := range ids {
				if _, err := fmt.Fprintln(a.out, id); err != nil {
					return err
				}
			}
			return nil
		},
	}
	a.storageFlag(cmd, &storage)
	return cmd
}
