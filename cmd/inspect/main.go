// Command inspect renders the contents of a chat database as a table.
// It opens Badger read-only with the lock guard bypassed, so it can run
// while the server holds the store.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

func main() {
	_ = godotenv.Load()

	defaultPath := os.Getenv("BADGER_FILEPATH")
	dbPath := flag.String("db", defaultPath, "Path to badger DB")
	// Default to messages; use "agreement:", "gig:" or "user:" for the rest.
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	header := color.New(color.BgBlack, color.FgGreen).
		Render(fmt.Sprintf(" records under %q ", *prefix))
	fmt.Println(header)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Timestamp", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()

			// Secondary indexes hold raw key pointers, not JSON.
			if strings.HasPrefix(string(item.Key()), "msgid:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				table.Append([]string{
					string(item.Key()),
					timestampOf(v),
					summarize(v),
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	return badger.Open(opts)
}

// timestampOf extracts the "at" field when the record carries one.
func timestampOf(value []byte) string {
	var record struct {
		At int64 `json:"at"`
	}
	if err := json.Unmarshal(value, &record); err != nil || record.At == 0 {
		return ""
	}
	return time.Unix(0, record.At).UTC().Format("15:04:05")
}

// summarize flattens the JSON record into "field=value" pairs so that
// every record type renders without a dedicated decoder.
func summarize(value []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(value, &fields); err != nil {
		return fmt.Sprintf("<%d opaque bytes>", len(value))
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		if name == "at" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%v", name, fields[name]))
	}
	return strings.Join(parts, " ")
}
