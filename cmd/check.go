package cmd

import (
	"fmt"
	"net/netip"
	"os"
	"text/tabwriter"

	"grimm.is/sixfence/internal/acl"
)

// RunCheck validates the configuration file and, with verbose, prints the
// resolved settings and a sample rendered ACL.
func RunCheck(configFile string, verbose bool) error {
	if configFile == "" {
		return fmt.Errorf("usage: sixfence check [-v] <config-file>")
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	fmt.Println("Configuration valid!")
	if !verbose {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "svi pattern:\t%s\n", cfg.SviPattern)
	fmt.Fprintf(w, "acl prefix:\t%s\n", cfg.ACL.Prefix)
	fmt.Fprintf(w, "acl backend:\t%s\n", cfg.ACL.Backend)
	if cfg.Eapi != nil {
		fmt.Fprintf(w, "eapi endpoint:\t%s\n", cfg.Eapi.Endpoint)
	}
	if cfg.Metrics != nil && cfg.Metrics.Listen != "" {
		fmt.Fprintf(w, "metrics:\t%s\n", cfg.Metrics.Listen)
	}
	fmt.Fprintf(w, "topology source:\t%s\n", cfg.Topology.Source)
	if d := cfg.PollInterval(); d > 0 {
		fmt.Fprintf(w, "poll interval:\t%s\n", d)
	}
	w.Flush()

	fmt.Println("\nSample ACL rendering:")
	sample := acl.Build(acl.Name(cfg.ACL.Prefix, "Ethernet1"), []int{10}, func(int) []netip.Prefix {
		return []netip.Prefix{netip.MustParsePrefix("2001:db8:10::/64")}
	})
	fmt.Print(acl.Render(sample))
	return nil
}
