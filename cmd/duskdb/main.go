// cmd/duskdb is the administration CLI for a duskdb data directory: it
// opens the engine directly against --path (duskdb is embedded, so
// "client" here means "operator of a local file set", not an RPC client),
// performs one operation, and closes cleanly.
//
// Usage:
//
//	duskdb --path ./data set mykey '{"hello":"world"}'
//	duskdb --path ./data get mykey
//	duskdb --path ./data delete mykey
//	duskdb --path ./data stats
//	duskdb --path ./data compact
//	duskdb --path ./data index create age range
//	duskdb --path ./data index list
//
// Grounded on cuemby-warren/cmd/warren's cobra root-command structure and
// ppriyankuu-godkv/cmd/client's one-subcommand-per-operation shape,
// adapted from an HTTP client to a direct embedded-engine operator since
// duskdb has no network surface of its own (spec §1 scopes the REST/
// WebSocket server out of core).
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kartikbazzad/duskdb"
	"github.com/kartikbazzad/duskdb/index"
)

var dataPath string

func main() {
	root := &cobra.Command{
		Use:   "duskdb",
		Short: "Administer a duskdb data directory",
	}
	root.PersistentFlags().StringVar(&dataPath, "path", "duskdb", "base path of the snapshot/WAL/backup file set")

	root.AddCommand(
		setCmd(),
		getCmd(),
		deleteCmd(),
		statsCmd(),
		compactCmd(),
		indexCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openDB opens the engine at --path for the duration of one command.
func openDB() (*duskdb.Database, error) {
	return duskdb.Open(duskdb.DefaultOptions(dataPath))
}

func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <json-value>",
		Short: "Set a key to a JSON-decoded value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			var value interface{}
			if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
				value = args[1] // fall back to a bare string value
			}
			if err := db.Set(args[0], value); err != nil {
				return err
			}
			fmt.Printf("set %q\n", args[0])
			return nil
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a key's value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			value, ok := db.Get(args[0])
			if !ok {
				fmt.Printf("key %q not found\n", args[0])
				return nil
			}
			printJSON(value)
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			deleted, err := db.Delete(args[0])
			if err != nil {
				return err
			}
			if deleted {
				fmt.Printf("deleted %q\n", args[0])
			} else {
				fmt.Printf("key %q not found\n", args[0])
			}
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print read/write/cache/size counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			printJSON(db.Stats())
			return nil
		},
	}
}

func compactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Force a snapshot + WAL rotation",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Compact(); err != nil {
				return err
			}
			fmt.Println("compaction complete")
			return nil
		},
	}
}

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage secondary indexes",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <field> <hash|range|text>",
			Short: "Build a secondary index on field",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := openDB()
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.CreateIndex(args[0], index.Kind(args[1])); err != nil {
					return err
				}
				fmt.Printf("index built on %q (%s)\n", args[0], args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "drop <field>",
			Short: "Drop a secondary index",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := openDB()
				if err != nil {
					return err
				}
				defer db.Close()
				if db.DropIndex(args[0]) {
					fmt.Printf("dropped index on %q\n", args[0])
				} else {
					fmt.Printf("no index on %q\n", args[0])
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List registered indexes",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := openDB()
				if err != nil {
					return err
				}
				defer db.Close()
				printJSON(db.ListIndexes())
				return nil
			},
		},
	)
	return cmd
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(data))
}
