package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/membufio/membuf/internal/api"
	"github.com/membufio/membuf/internal/bytesize"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running membuf instance",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get("http://" + statusAddr + "/status")
		if err != nil {
			return fmt.Errorf("query %s: %w", statusAddr, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status endpoint returned %s", resp.Status)
		}

		var st api.Status
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			return fmt.Errorf("decode status: %w", err)
		}

		pct := 0.0
		if st.Size > 0 {
			pct = 100 * float64(st.CachedSize) / float64(st.Size)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Field", "Value"})
		table.Append([]string{"Size", bytesize.ByteSize(st.Size).String()})
		table.Append([]string{"Position", bytesize.ByteSize(st.Position).String()})
		table.Append([]string{"Cached", fmt.Sprintf("%s (%.1f%%)", bytesize.ByteSize(st.CachedSize), pct)})
		table.Append([]string{"Prebuffer finished", fmt.Sprintf("%t", st.PrebufferFinished)})
		table.Render()
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "127.0.0.1:7171", "address of the status API")
}
