package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rootexgo/rootex/internal/core/event"
	coresys "github.com/rootexgo/rootex/internal/core/system"
	"github.com/rootexgo/rootex/internal/scene"
	"github.com/rootexgo/rootex/internal/scripting"
	"github.com/rootexgo/rootex/internal/system"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the frame loop until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runLoop,
	})
}

func runLoop(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	a, err := openApp(startCtx)
	cancel()
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log
	cfg := a.cfg

	printBanner(cfg.Project.Name)

	printSection("Store")
	printOK(fmt.Sprintf("backend %s ready", cfg.Store.Backend))
	if a.pg != nil {
		go func() {
			if err := a.pg.Listen(ctx); err != nil {
				log.Error("asset change listener stopped", zap.Error(err))
			}
		}()
		printOK("listening for asset changes")
	}
	fmt.Println()

	printSection("Data")
	printStat("Component kinds", len(a.graph.Components().Kinds()))
	printStat("Material kinds", len(a.mats.Kinds()))
	printStat("Event types", len(a.events.Events()))

	scripts := scripting.NewEngine(scripting.Deps{
		Events:    a.events,
		Graph:     a.graph,
		Resources: a.res,
		Log:       log,
	})
	defer scripts.Close()
	n, err := scripts.LoadDir(cfg.Project.ScriptsDir)
	if err != nil {
		return fmt.Errorf("load scripts: %w", err)
	}
	printStat("Scripts", n)

	if cfg.Project.PostInitialize != "" {
		file := cfg.ScenePath(cfg.Project.PostInitialize)
		if _, err := a.sess.LoadScene(file); err != nil {
			return fmt.Errorf("open %s: %w", file, err)
		}
		printStat("Scenes", len(a.graph.All()))
	}
	fmt.Println()

	frame := cfg.Editor.FrameInterval()
	runner := coresys.NewRunner(coresys.WithFrameBudget(frame, log))
	runner.Register(system.NewSceneUpdateSystem(func() *scene.Scene { return a.sess.Root() }))
	runner.Register(system.NewHotReloadSystem(a.res, scripts, a.events, log))
	autosave := system.NewAutosaveSystem(a.events, log, cfg.Editor.AutosaveInterval)
	runner.Register(autosave)
	runner.Register(system.NewDeferredSystem(a.events, cfg.Editor.DeferredBudget))

	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	printSection("Ready")
	printReady(fmt.Sprintf("frame loop started (frame: %s, systems: %d)", frame, runner.Len()))
	fmt.Println()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			runner.Tick(now.Sub(last))
			last = now
		case <-ctx.Done():
			log.Info("shutdown signal received")
			a.events.Call(event.ApplicationExit, nil)
			autosave.SaveNow()
			log.Info("engine stopped")
			return nil
		}
	}
}
