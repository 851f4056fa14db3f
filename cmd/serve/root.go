package serve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/dRing/cmd/util"
	"github.com/ValentinKolb/dRing/lib/discovery"
	"github.com/ValentinKolb/dRing/lib/store/lstore"
	"github.com/ValentinKolb/dRing/rpc/common"
	"github.com/ValentinKolb/dRing/rpc/node"
	"github.com/ValentinKolb/dRing/rpc/server"
	"github.com/ValentinKolb/dRing/rpc/transport/udp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = common.DefaultNodeConfig()
	ServeCmd       = &cobra.Command{
		Use:   "serve [entry-address]",
		Short: "Start a ring node",
		Long: `Start a ring node. Without an entry address the node starts standalone and
waits for others to join. With an entry address (or an entry found through
etcd) it joins the ring of that node.

The configuration can be set via command line flags or environment variables.
The format of the environment variables is DRING_<flag> (e.g. DRING_JOIN_TIMEOUT_MS=500)`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	defaults := common.DefaultNodeConfig()

	// add flags
	key := "listen"
	ServeCmd.PersistentFlags().String(key, defaults.ListenAddr, cmdUtil.WrapString("Address the UDP transport binds to"))

	key = "advertise"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address announced to other nodes. Defaults to the bound address with the host name for an unspecified host"))

	key = "join-timeout-ms"
	ServeCmd.PersistentFlags().Int64(key, defaults.JoinTimeoutMs, cmdUtil.WrapString("Timeout of a single join request in milliseconds"))

	key = "join-retries"
	ServeCmd.PersistentFlags().Int(key, defaults.JoinRetries, cmdUtil.WrapString("How many times a timed out join request is resent before the node stays standalone"))

	key = "liveness-timeout-ms"
	ServeCmd.PersistentFlags().Int64(key, defaults.LivenessTimeoutMs, cmdUtil.WrapString("Timeout of a single liveness probe in milliseconds"))

	key = "liveness-grace-ms"
	ServeCmd.PersistentFlags().Int64(key, defaults.LivenessGraceMs, cmdUtil.WrapString("How long a liveness check waits for both neighbors in milliseconds"))

	key = "check-interval-ms"
	ServeCmd.PersistentFlags().Int64(key, defaults.CheckIntervalMs, cmdUtil.WrapString("Period of the background liveness check in milliseconds, 0 disables it"))

	key = "request-timeout-ms"
	ServeCmd.PersistentFlags().Int64(key, defaults.RequestTimeoutMs, cmdUtil.WrapString("Timeout of neighbor updates and store requests in milliseconds"))

	key = "admin-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of the admin HTTP server (e.g. localhost:8080), empty disables it"))

	key = "etcd-endpoints"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Comma-separated list of etcd endpoints used to register the node and find an entry node"))

	key = "lease-ttl"
	ServeCmd.PersistentFlags().Int64(key, defaults.LeaseTTLSec, cmdUtil.WrapString("TTL in seconds of the etcd registration"))

	key = "stats-interval"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Period in seconds of the delivery statistics log line, 0 disables it"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, defaults.LogLevel, cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the node configuration
func processConfig(cmd *cobra.Command, args []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.ListenAddr = viper.GetString("listen")
	serveCmdConfig.AdvertiseAddr = viper.GetString("advertise")
	serveCmdConfig.Serializer = viper.GetString("serializer")
	serveCmdConfig.JoinTimeoutMs = viper.GetInt64("join-timeout-ms")
	serveCmdConfig.JoinRetries = viper.GetInt("join-retries")
	serveCmdConfig.LivenessTimeoutMs = viper.GetInt64("liveness-timeout-ms")
	serveCmdConfig.LivenessGraceMs = viper.GetInt64("liveness-grace-ms")
	serveCmdConfig.CheckIntervalMs = viper.GetInt64("check-interval-ms")
	serveCmdConfig.RequestTimeoutMs = viper.GetInt64("request-timeout-ms")
	serveCmdConfig.AdminEndpoint = viper.GetString("admin-endpoint")
	serveCmdConfig.LeaseTTLSec = viper.GetInt64("lease-ttl")
	serveCmdConfig.StatsIntervalSec = viper.GetInt64("stats-interval")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	// parse etcd endpoints
	serveCmdConfig.EtcdEndpoints = nil
	for _, endpoint := range strings.Split(viper.GetString("etcd-endpoints"), ",") {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			serveCmdConfig.EtcdEndpoints = append(serveCmdConfig.EtcdEndpoints, endpoint)
		}
	}

	// the optional positional argument is the entry node
	if len(args) == 1 {
		serveCmdConfig.EntryAddr = withDefaultPort(args[0])
	}

	return serveCmdConfig.Validate()
}

// run starts the node and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	if err := common.InitLoggers(serveCmdConfig.LogLevel); err != nil {
		return err
	}
	cmdUtil.Logger.Infof("%s", serveCmdConfig.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := node.New(serveCmdConfig, udp.NewUDPTransport(serveCmdConfig.ListenAddr), lstore.NewLocalStore())
	if err != nil {
		return err
	}
	if err := n.Start(); err != nil {
		return err
	}
	defer n.Close()

	// Admin server
	if serveCmdConfig.AdminEndpoint != "" {
		admin := server.NewAdminServer(serveCmdConfig.AdminEndpoint, n, serveCmdConfig.LogLevel == "debug")
		go func() {
			if err := admin.Serve(); err != nil {
				cmdUtil.Logger.Errorf("Admin server failed: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = admin.Shutdown(shutdownCtx)
		}()
	}

	// Discovery
	var registry *discovery.Registry
	if len(serveCmdConfig.EtcdEndpoints) > 0 {
		registry, err = discovery.NewRegistry(serveCmdConfig.EtcdEndpoints, serveCmdConfig.LeaseTTLSec)
		if err != nil {
			return err
		}
		defer registry.Close()
	}

	entry := serveCmdConfig.EntryAddr
	if entry == "" && registry != nil {
		if entry, err = registry.PickEntry(ctx, n.Self()); err != nil {
			cmdUtil.Logger.Warningf("Failed to find an entry node: %v", err)
		}
	}

	if entry != "" {
		if err := joinRing(ctx, n, entry); err != nil {
			cmdUtil.Logger.Warningf("%v", err)
		}
	}

	if registry != nil {
		if err := registry.Register(ctx, n.Self()); err != nil {
			cmdUtil.Logger.Errorf("Failed to register in etcd: %v", err)
		}
		go registry.WatchPeers(ctx, logPeerChange(n.Self()))
	}

	// Background loops
	go n.RunLivenessLoop(ctx, serveCmdConfig.CheckInterval())
	if serveCmdConfig.StatsIntervalSec > 0 {
		go n.Delivery().LogStats(ctx, time.Duration(serveCmdConfig.StatsIntervalSec)*time.Second)
	}

	<-ctx.Done()
	cmdUtil.Logger.Infof("Shutting down node %s", n.Self())
	return nil
}

// joinRing joins via entry and waits for the outcome. A node whose join fails
// keeps running standalone.
func joinRing(ctx context.Context, n *node.Node, entry string) error {
	done, err := n.JoinCluster(entry)
	if err != nil {
		return fmt.Errorf("failed to join via %s: %w", entry, err)
	}

	select {
	case err := <-done:
		switch {
		case err == nil:
			return nil
		case errors.Is(err, node.ErrJoinTimeout):
			return fmt.Errorf("entry node %s did not answer, running standalone: %w", entry, err)
		default:
			return fmt.Errorf("join via %s failed, running standalone: %w", entry, err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// logPeerChange returns a watch callback that logs nodes registering in or
// leaving etcd
func logPeerChange(self string) func(addr string, up bool) {
	return func(addr string, up bool) {
		if msg := peerChangeMessage(self, addr, up); msg != "" {
			cmdUtil.Logger.Infof("%s", msg)
		}
	}
}

// peerChangeMessage describes a registry change, changes of the local node are not reported
func peerChangeMessage(self, addr string, up bool) string {
	switch {
	case addr == self:
		return ""
	case up:
		return fmt.Sprintf("Node %s registered in etcd", addr)
	default:
		return fmt.Sprintf("Node %s left etcd", addr)
	}
}

// withDefaultPort appends the default port to an entry address without one
func withDefaultPort(addr string) string {
	if strings.LastIndex(addr, ":") > strings.LastIndex(addr, "]") {
		return addr
	}
	return fmt.Sprintf("%s:%d", addr, common.DefaultPort)
}
