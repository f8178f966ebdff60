package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/public/tahoe-lafs/pkg/accountant"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounting-core accounts",
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every known account and its current usage",
	RunE:  runAccountList,
}

var accountCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create (or fetch) an account by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountCreate,
}

func init() {
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountCreateCmd)
}

func runAccountList(cmd *cobra.Command, args []string) error {
	db, _, err := openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	acct := accountant.New(db, 0)
	infos, err := acct.GetAllAccounts()
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"OWNER NUM", "NAME", "CREATED", "USAGE (BYTES)"})
	table.SetAutoFormatHeaders(true)
	table.SetBorder(false)

	for _, info := range infos {
		usage, err := db.GetAccountUsage(info.OwnerNum)
		if err != nil {
			return fmt.Errorf("usage for owner %d: %w", info.OwnerNum, err)
		}
		table.Append([]string{
			fmt.Sprintf("%d", info.OwnerNum),
			info.Name,
			info.CreationTime.Format(time.RFC3339),
			fmt.Sprintf("%d", usage),
		})
	}
	table.Render()
	return nil
}

func runAccountCreate(cmd *cobra.Command, args []string) error {
	db, _, err := openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	acct := accountant.New(db, 0)
	account, err := acct.GetAccount(args[0])
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	fmt.Printf("Account %q ready (owner_num=%d)\n", args[0], account.OwnerNum())
	return nil
}
