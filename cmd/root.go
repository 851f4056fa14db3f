package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dRing/cmd/kv"
	"github.com/ValentinKolb/dRing/cmd/serve"
	"github.com/ValentinKolb/dRing/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dring",
		Short: "peer-to-peer ring of key-value nodes",
		Long: fmt.Sprintf(`dRing (v%s)

A peer-to-peer ring overlay written in Go. Nodes join a ring through any
member, watch the liveness of their two neighbors and serve a local
key-value store over an acknowledged UDP protocol.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dRing",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dRing v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use for datagrams (json, gob, binary), all nodes of a ring must use the same"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
