package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	markCmd "github.com/alugowski/archive-workdir/cmd/mark"
	syncCmd "github.com/alugowski/archive-workdir/cmd/sync"
	"github.com/alugowski/archive-workdir/cmd/util"
	versionCmd "github.com/alugowski/archive-workdir/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "ARCHIVE_WORKDIR_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	rootCmd := &cobra.Command{
		Use:   "archive-workdir",
		Short: "Keep an archive directory in sync with the subdirectories of a working directory",
		Long: "Copy the subdirectories of a working directory to an archive directory.\n" +
			"Subsequent runs re-sync the copies, following renames via identity markers.\n" +
			"The archive is expected to be a superset of the working directory, where\n" +
			"the working directory is the owner of the subdirectories it does have.",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		markCmd.New(),
		syncCmd.New(),
		versionCmd.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
