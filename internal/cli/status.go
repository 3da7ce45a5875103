package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/homenest/internal/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and sign-in status",
		Long:  "Tests the connection to the listing server and shows who is signed in.",
		Args:  cobra.NoArgs,
		RunE:  withApp(runStatus),
	}
}

func runStatus(cmd *cobra.Command, args []string, a *app) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Server:   %s\n", a.settings.ServerURL)

	switch {
	case a.session == nil:
		fmt.Fprintln(out, "Identity: not configured (set HN_IDENTITY_API_KEY)")
	case a.session.Current() == nil:
		fmt.Fprintln(out, "Identity: not signed in")
	default:
		id := a.session.Current()
		fmt.Fprintf(out, "Identity: %s <%s>\n", id.Name(), id.Email)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	// Records are only counted here, so they are not validated.
	res := client.Fetch[[]json.RawMessage](ctx, a.api, "/properties")
	if res.Failed() {
		fmt.Fprintf(out, "Status:   ✗ cannot load listings (%v)\n", res.Err)
		return nil
	}
	fmt.Fprintf(out, "Status:   ✓ connected (%d listings)\n", len(res.Data))
	return nil
}
