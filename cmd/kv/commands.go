package kv

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/dRing/lib/store"
	"github.com/spf13/cobra"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Stores a value, an existing key is not overwritten",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			err := rpcStore.Put(context.Background(), key, []byte(value))
			switch {
			case store.IsAlreadyExists(err):
				fmt.Printf("key=%s already exists\n", key)
			case err != nil:
				return err
			default:
				fmt.Println("put successfully")
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			resp, ok, err := rpcStore.Get(context.Background(), key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, resp=%s\n", key, ok, resp)
			return nil
		},
	}
	removeCmd = &cobra.Command{
		Use:   "remove [key]",
		Short: "Removes a key and prints the removed value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			resp, ok, err := rpcStore.Remove(context.Background(), key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, removed=%v, resp=%s\n", key, ok, resp)
			return nil
		},
	}
)
