package main

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tasknest/tasknest/internal/conflict"
	"github.com/tasknest/tasknest/internal/task"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Inspect and resolve sync conflicts",
	Long: `Sync tools that find concurrent edits leave conflict-copy files next
to the original. These commands list the unresolved version sets and apply
a resolution policy to them.`,
}

var conflictsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List unresolved conflicts",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault(nil)
		if err != nil {
			return err
		}

		provider := conflict.FolderProvider{}
		found := 0
		err = filepath.WalkDir(v.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			name := d.Name()
			if d.IsDir() {
				if path != v.root && strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(name, task.Extension) || conflict.IsConflictCopy(name) {
				return nil
			}
			versions, err := provider.ListUnresolvedVersions(path)
			if err != nil || len(versions) == 0 {
				return nil
			}
			found++
			rel, _ := filepath.Rel(v.root, path)
			fmt.Printf("%s (%d versions)\n", rel, len(versions))
			for _, ver := range versions {
				fmt.Printf("  %-10s %s  %s\n",
					ver.Origin, ver.ModifiedAt.Format("2006-01-02 15:04:05"), ver.ID)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if found == 0 {
			fmt.Println("No unresolved conflicts.")
		}
		return nil
	},
}

var (
	resolvePolicy  string
	resolveVersion string
)

var conflictsResolveCmd = &cobra.Command{
	Use:   "resolve <file>",
	Short: "Resolve one conflicted file",
	Long: `Apply a resolution policy to a conflicted file:

  keep-local   retain the working copy, discard the alternates
  keep-remote  replace local content with --version (or the newest copy)
  defer        leave the conflict; it re-surfaces every sync pass

Discarded alternates are gone for good.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault(nil)
		if err != nil {
			return err
		}
		path := v.resolveTaskPath(args[0])

		var policy conflict.Policy
		switch resolvePolicy {
		case "keep-local":
			policy = conflict.KeepLocal
		case "keep-remote":
			policy = conflict.KeepRemote
		case "defer":
			policy = conflict.Defer
		default:
			return fmt.Errorf("invalid --policy %q (keep-local, keep-remote, defer)", resolvePolicy)
		}

		provider := conflict.FolderProvider{}
		versions, err := provider.ListUnresolvedVersions(path)
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			fmt.Println("No conflict on that file.")
			return nil
		}

		res := conflict.Resolution{Policy: policy, Version: conflict.VersionID(resolveVersion)}
		if err := provider.Resolve(path, res); err != nil {
			return err
		}
		fmt.Printf("Resolved %s (%s)\n", args[0], policy)
		return nil
	},
}

func init() {
	conflictsResolveCmd.Flags().StringVar(&resolvePolicy, "policy", "defer", "resolution policy")
	conflictsResolveCmd.Flags().StringVar(&resolveVersion, "version", "", "explicit version for keep-remote")

	conflictsCmd.AddCommand(conflictsListCmd, conflictsResolveCmd)
	rootCmd.AddCommand(conflictsCmd)
}
