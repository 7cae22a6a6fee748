package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rootexgo/rootex/internal/scene"
)

func init() {
	sceneCmd := &cobra.Command{
		Use:   "scene",
		Short: "Create and inspect scene files",
	}
	sceneCmd.AddCommand(&cobra.Command{
		Use:   "new <name>",
		Short: "Create an empty scene in the scenes directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runSceneNew,
	})
	sceneCmd.AddCommand(&cobra.Command{
		Use:   "tree <file>",
		Short: "Print the scene hierarchy of a scene file",
		Args:  cobra.ExactArgs(1),
		RunE:  runSceneTree,
	})
	rootCmd.AddCommand(sceneCmd)

	matCmd := &cobra.Command{
		Use:   "material",
		Short: "Create materials and list material kinds",
	}
	matCmd.AddCommand(&cobra.Command{
		Use:   "new <path> <kind>",
		Short: "Create a material file of the given kind",
		Args:  cobra.ExactArgs(2),
		RunE:  runMaterialNew,
	})
	matCmd.AddCommand(&cobra.Command{
		Use:   "kinds",
		Short: "List registered material kinds",
		Args:  cobra.NoArgs,
		RunE:  runMaterialKinds,
	})
	rootCmd.AddCommand(matCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "resources [dir]",
		Short: "List the files in a directory (default: scenes dir) with their asset kind",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runResources,
	})
}

// withApp opens the engine core for a one-shot command.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func runSceneNew(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		file, created, err := a.sess.CreateScene(args[0])
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("scene %s already exists", file)
		}
		printOK("created " + file)
		return nil
	})
}

func runSceneTree(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		sc, err := a.graph.CreateFromFile(args[0])
		if err != nil {
			return err
		}
		defer sc.Destroy()
		out := cmd.OutOrStdout()
		depth := map[scene.ID]int{sc.ID(): 0}
		sc.Walk(func(n *scene.Scene) bool {
			d := 0
			if p := n.Parent(); p != nil {
				d = depth[p.ID()] + 1
			}
			depth[n.ID()] = d
			line := fmt.Sprintf("%s%s #%d", strings.Repeat("  ", d), n.Name(), n.ID())
			if n.ImportStyle() == scene.External && n != sc {
				line += " -> " + n.SceneFile()
			}
			if e := n.Entity(); e != nil && e.Len() > 0 {
				kinds := make([]string, 0, e.Len())
				for _, c := range e.Components() {
					kinds = append(kinds, c.Kind())
				}
				line += " [" + strings.Join(kinds, ", ") + "]"
			}
			fmt.Fprintln(out, line)
			return true
		})
		return nil
	})
}

func runMaterialNew(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		if err := a.mats.CreateNewFile(args[0], args[1]); err != nil {
			return err
		}
		printOK(fmt.Sprintf("material %s (%s)", args[0], args[1]))
		return nil
	})
}

func runMaterialKinds(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a *app) error {
		for _, k := range a.mats.Kinds() {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	})
}

func runResources(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		dir := a.cfg.Project.ScenesDir
		if len(args) == 1 {
			dir = args[0]
		}
		paths, err := a.store.List(dir)
		if err != nil {
			return err
		}
		byKind := make(map[string]int)
		for _, p := range paths {
			kind := a.res.Kind(p)
			byKind[kind]++
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", kind, p)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		for _, k := range sortedKeys(byKind) {
			printStat(k, byKind[k])
		}
		return nil
	})
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
