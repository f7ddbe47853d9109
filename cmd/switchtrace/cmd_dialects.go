package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/switchtrace/switchtrace/pkg/cli"
	"github.com/switchtrace/switchtrace/pkg/dialect"
	"github.com/switchtrace/switchtrace/pkg/session"
)

var dialectsCmd = &cobra.Command{
	Use:   "dialects [name]",
	Short: "List built-in command dialects",
	Long: `List the built-in command dialects, or show the commands of one.

Commands may use the placeholders {ip}, {mac}, {mac_dotted} and {port}.
Inventories can define their own dialects layered on a built-in one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			for _, name := range dialect.Names() {
				marker := ""
				if name == dialect.Default {
					marker = cli.Dim(" (default)")
				}
				fmt.Println(name + marker)
			}
			return nil
		}

		c, ok := dialect.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown dialect %q (valid: %s)", args[0], strings.Join(dialect.Names(), ", "))
		}
		if app.jsonOutput {
			return cli.WriteJSON(os.Stdout, c)
		}

		t := cli.NewTable("COMMAND", "TEXT")
		t.Row("arp", c.ARP)
		t.Row("forwarding_table", c.ForwardingTable)
		t.Row("neighbor_detail", c.NeighborDetail)
		t.Row("hostname", c.Hostname)
		t.Row("inventory", c.Inventory)
		for _, s := range c.Setup {
			t.Row("setup", s)
		}
		t.Flush()
		return nil
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List local serial ports for console access",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := session.ListSerialPorts()
		if err != nil {
			return fmt.Errorf("listing serial ports: %w", err)
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	addOutputFlags(dialectsCmd)
}
