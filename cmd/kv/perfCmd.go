package kv

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dRing/cmd/util"
	"github.com/ValentinKolb/dRing/lib/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for the store of a ring node",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "__test"
	perfValueSize  = 64
	perfNumThreads = 10
	perfKeySpread  = 100
	perfSkip       = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "value-size"
	perfTestCmd.Flags().Int(key, 64, util.WrapString("Size of the values in bytes, a datagram must hold key and value"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfValueSize = viper.GetInt("value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfKeySpread <= 0 {
		return fmt.Errorf("keys must be positive")
	}
	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for ring nodes")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(clientConfig.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	results := make(map[string]testing.BenchmarkResult)
	value := make([]byte, perfValueSize)

	// put into an empty store, every key is removed again after the run
	results["put"] = benchmark("put", func(key string) error {
		err := rpcStore.Put(context.Background(), key, value)
		if store.IsAlreadyExists(err) {
			return nil
		}
		return err
	}, true)

	// get on populated keys
	results["get"] = benchmark("get", func(key string) error {
		_, _, err := rpcStore.Get(context.Background(), key)
		return err
	}, true)

	// get on keys that were never written
	results["get-missing"] = benchmark("get-missing", func(key string) error {
		_, _, err := rpcStore.Get(context.Background(), key)
		return err
	}, false)

	// put, get and remove in turn
	var counter atomic.Uint64
	results["mixed"] = benchmark("mixed", func(key string) error {
		var err error
		switch counter.Add(1) % 3 {
		case 0:
			err = rpcStore.Put(context.Background(), key, value)
			if store.IsAlreadyExists(err) {
				err = nil
			}
		case 1:
			_, _, err = rpcStore.Get(context.Background(), key)
		default:
			_, _, err = rpcStore.Remove(context.Background(), key)
		}
		return err
	}, true)

	// Print delivery statistics of the client node
	s := rpcStore.Delivery().Snapshot()
	fmt.Printf("\nsent=%d acked=%d timeouts=%d anomalies=%d rtt(mean=%.2fms p99=%.2fms max=%.2fms)\n",
		s.Sent, s.Acked, s.Timeouts, s.Anomalies, s.RTTMeanMs, s.RTTP99Ms, s.RTTMaxMs)

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return err
		}
	}

	return nil
}

// benchmark runs op in parallel on the test keys of one test. With populate the
// keys are written before and removed after the run.
func benchmark(test string, op func(key string) error, populate bool) testing.BenchmarkResult {
	result := testing.Benchmark(func(b *testing.B) {
		if shouldSkip(test) {
			return
		}

		// prepare keys
		getKey, iter := getKeys(test)

		if populate {
			iter(func(k string) {
				if err := rpcStore.Put(context.Background(), k, []byte("test")); err != nil && !store.IsAlreadyExists(err) {
					log.Printf("(%s) - error setting key: %v\n", test, err)
				}
			})
			b.Cleanup(func() {
				iter(func(k string) {
					if _, _, err := rpcStore.Remove(context.Background(), k); err != nil {
						log.Printf("(%s) - error removing key: %v\n", test, err)
					}
				})
			})
		}

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if err := op(getKey(counter)); err != nil {
					log.Printf("(%s) - error: %v\n", test, err)
				}
				counter++
			}
		})
	})

	printResult(test, result)
	return result
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Peer", "TimeoutMs", "Serializer",
		"Threads", "ValueSize", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for test, result := range results {
		var nsPerOp, opsPerSec float64
		skipped := "true"
		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			clientConfig.Peer,
			strconv.FormatInt(clientConfig.RequestTimeoutMs, 10),
			clientConfig.Serializer,
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfValueSize),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %w", test, err)
		}
	}

	return nil
}
