package kv

import (
	"github.com/ValentinKolb/dRing/cmd/util"
	"github.com/ValentinKolb/dRing/rpc/client"
	"github.com/ValentinKolb/dRing/rpc/common"
	"github.com/spf13/cobra"
)

var (
	rpcStore     *client.RPCStore
	clientConfig common.ClientConfig

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:   "kv",
		Short: "Access the local store of a ring node",
		Long: `Access the local store of a single ring node.

The commands start a short-lived node on an ephemeral port and send the
request to the node given with --peer. Keys are not distributed over the
ring, every node only serves its own store.`,
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common client flags to the KV command
	util.SetupClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(removeCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient starts the client node
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	if err := common.InitLoggers("warn"); err != nil {
		return err
	}

	clientConfig = util.GetClientConfig()

	var err error
	rpcStore, err = client.NewRPCStore(clientConfig)
	return err
}

func closeKVClient(_ *cobra.Command, _ []string) error {
	if rpcStore == nil {
		return nil
	}
	return rpcStore.Close()
}
