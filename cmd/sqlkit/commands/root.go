// Package commands implements CLI commands.
package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Konsultn-Engineering/sqlkit/config"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	faint   = color.New(color.Faint)
)

type options struct {
	fs         afero.Fs
	configPath string
}

func (o *options) settings() (*config.Settings, error) {
	return config.Load(o.fs, o.configPath)
}

// NewRootCommand builds the sqlkit command tree over the OS filesystem.
func NewRootCommand() *cobra.Command {
	return newRootCommand(afero.NewOsFs())
}

func newRootCommand(fs afero.Fs) *cobra.Command {
	o := &options{fs: fs}

	root := &cobra.Command{
		Use:           "sqlkit",
		Short:         "SQL template compiler and executor",
		Long:          "sqlkit compiles $if/$sort and :name SQL templates for a target dialect and checks database connectivity",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "config file (default ./sqlkit.yaml, $HOME/sqlkit.yaml)")

	root.AddCommand(newCompileCommand(o))
	root.AddCommand(newPingCommand(o))
	root.AddCommand(NewVersionCommand())
	return root
}
