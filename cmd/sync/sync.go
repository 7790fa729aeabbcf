package sync

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/alugowski/archive-workdir/cmd/util"
	"github.com/alugowski/archive-workdir/pkg/config"
	"github.com/alugowski/archive-workdir/pkg/errors"
	"github.com/alugowski/archive-workdir/pkg/fswatch"
	"github.com/alugowski/archive-workdir/pkg/mirror"
	"github.com/alugowski/archive-workdir/pkg/reconcile"
	"github.com/alugowski/archive-workdir/pkg/report"
	"github.com/alugowski/archive-workdir/pkg/scan"
)

// In watch mode, changes are batched for this long before a pass runs so a
// burst of saves triggers one sync instead of many.
const watchSettleDelay = 2 * time.Second

// Mocked out for unit testing.
var (
	parseConfig = config.Parse
	scanTree    = scan.Tree
	watchTree   = fswatch.Watch
	newExecutor = func(cfg config.Config, dryRun bool) reconcile.Executor {
		if dryRun {
			return mirror.DryRun{}
		}
		return &mirror.Executor{Ignore: cfg.Ignore, DetectRenames: cfg.Rename}
	}
)

type options struct {
	workDir    string
	archiveDir string

	autoSyncNew    bool
	reportUnsynced bool
	dryRun         bool
	rename         bool
	watch          bool
}

// New creates a new `sync` command.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "sync WORK_DIR [ARCHIVE_DIR]",
		Short: "Reconcile the working directory's subdirectories into the archive",
		Long: "Scan both trees, match working subdirectories to their archive copies\n" +
			"by identity marker (falling back to name for never-tracked pairs), then\n" +
			"mirror each matched pair. The archive directory argument can be omitted\n" +
			"when the working directory's " + config.Filename + " sets it.",
		Args: cobra.RangeArgs(1, 2),
		Run: func(_ *cobra.Command, args []string) {
			opts.workDir = args[0]
			if len(args) > 1 {
				opts.archiveDir = args[1]
			}
			if err := run(opts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}

	cmd.Flags().BoolVarP(&opts.autoSyncNew, "auto-sync-new", "n", false,
		"Automatically mark and sync working subdirectories that have no archive "+
			"counterpart. By default such directories are only reported, to avoid "+
			"accidental data loss by overwriting changes on the archive side.")
	cmd.Flags().BoolVarP(&opts.reportUnsynced, "report-unsynced", "e", false,
		"Exit with an error code if any directories could not be synchronized. "+
			"Useful to warn you of problems when run in a cron job.")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "d", false,
		"Do not make any changes.")
	cmd.Flags().BoolVarP(&opts.rename, "rename", "r", false,
		"Attempt to detect files that have been renamed and rename the archive's "+
			"copy. Cheaper than the copy/delete the mirror would do.")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false,
		"Keep running and re-sync whenever the working directory changes.")
	cmd.Flags().BoolP("verbose", "v", false, "Extra logging.")

	cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			log.SetLevel(log.DebugLevel)
		}
	}
	return cmd
}

func run(opts options) error {
	cfg, err := parseConfig(opts.workDir)
	if err != nil {
		return errors.WithContext(err, "parse config")
	}

	// Flags override the config file. The policy flags are booleans that
	// default to off, so a set flag always wins and an unset one defers.
	cfg.AutoSyncNew = cfg.AutoSyncNew || opts.autoSyncNew
	cfg.ReportUnsynced = cfg.ReportUnsynced || opts.reportUnsynced
	cfg.Rename = cfg.Rename || opts.rename
	if opts.archiveDir != "" {
		cfg.Archive = opts.archiveDir
	}
	if cfg.Archive == "" {
		return errors.NewFriendlyError(
			"No archive directory given.\n"+
				"Pass it as the second argument, or set `archive` in %s.",
			config.Filename)
	}

	if !opts.watch {
		return runPass(opts, cfg)
	}

	updates, err := watchTree(opts.workDir)
	if err != nil {
		return errors.WithContext(err, "watch working directory")
	}

	for {
		if err := runPass(opts, cfg); err != nil {
			// In watch mode an unsynchronized directory shouldn't kill the
			// process; it will be reported again on every pass.
			log.WithError(err).Error("Sync pass failed")
		}
		<-updates
		time.Sleep(watchSettleDelay)
	}
}

// runPass performs one full scan-reconcile-execute-report pass.
func runPass(opts options, cfg config.Config) error {
	log.WithFields(log.Fields{
		"work":    opts.workDir,
		"archive": cfg.Archive,
	}).Info("Archiving")

	workEntries, workMalformed, err := scanTree(opts.workDir)
	if err != nil {
		return errors.WithContext(err, "scan working directory")
	}
	archiveEntries, archiveMalformed, err := scanTree(cfg.Archive)
	if err != nil {
		return errors.WithContext(err, "scan archive directory")
	}

	workIndex := reconcile.BuildIndex(workEntries)
	archiveIndex := reconcile.BuildIndex(archiveEntries)

	plan := reconcile.Reconcile(workIndex, archiveIndex, cfg.Archive,
		reconcile.Options{AutoSyncNew: cfg.AutoSyncNew})
	for _, pairing := range plan.Pairings {
		log.WithField("action", pairing.Action.String()).Infof(
			"%q : %s", pairing.Work.Name, describe(pairing))
	}

	failures := reconcile.Apply(plan, newExecutor(cfg, opts.dryRun))

	collector := &report.Collector{}
	collector.AddMalformedMarkers(workMalformed)
	collector.AddMalformedMarkers(archiveMalformed)
	collector.AddDuplicates(workIndex.Duplicates)
	collector.AddDuplicates(archiveIndex.Duplicates)
	for _, pairing := range plan.Pairings {
		collector.AddPairing(pairing)
	}
	collector.Print(opts.workDir, cfg.Archive)

	if cfg.ReportUnsynced && (!collector.Empty() || len(failures) > 0) {
		return errors.NewFriendlyError(
			"%d directories were not synchronized.",
			len(collector.Anomalies())+len(failures))
	}
	if len(failures) > 0 {
		return errors.WithContext(failures[0], "apply plan")
	}
	return nil
}

func describe(pairing reconcile.Pairing) string {
	if pairing.Reason != "" {
		return pairing.Reason
	}
	switch pairing.Action {
	case reconcile.ActionSync:
		if pairing.Archive != nil && pairing.Archive.Name != pairing.Work.Name {
			return "renamed from " + pairing.Archive.Name + ", archive to be updated"
		}
		return "re-syncing"
	case reconcile.ActionSyncAndAssign:
		return "first sync, assigning identity"
	case reconcile.ActionCreateAndAssign:
		return "new, creating archive copy"
	}
	return pairing.Action.String()
}
