/*
 * Copyright 2019 Amazon.com, Inc. or its affiliates. All Rights Reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License"). You
 * may not use this file except in compliance with the License. A copy of
 * the License is located at
 *
 * 	http://aws.amazon.com/apache2.0/
 *
 * or in the "license" file accompanying this file. This file is
 * distributed on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF
 * ANY KIND, either express or implied. See the License for the specific
 * language governing permissions and limitations under the License.
 */

// Command ecr-migrate migrates container images from a source artifact
// registry into Amazon ECR.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/containerd/containerd/log"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ecr-migrate/migrate"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// flagOverrides is the subset of config fields exposed as flags. Flags that
// were actually set on the command line win over the config file.
type flagOverrides struct {
	account     string
	region      string
	baseRepo    string
	platform    string
	logPrefix   string
	skipPull    bool
	concurrency int
}

func (o flagOverrides) apply(cmd *cobra.Command, cfg *migrate.Config) {
	if cmd.Flags().Changed("account") {
		cfg.Account = o.account
	}
	if cmd.Flags().Changed("region") {
		cfg.Region = o.region
	}
	if cmd.Flags().Changed("base-repo") {
		cfg.BaseRepo = o.baseRepo
	}
	if cmd.Flags().Changed("platform") {
		cfg.Platform = o.platform
	}
	if cmd.Flags().Changed("log-prefix") {
		cfg.LogPrefix = o.logPrefix
	}
	if cmd.Flags().Changed("skip-pull") {
		cfg.SkipPull = o.skipPull
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = o.concurrency
	}
}

func registerFlags(cmd *cobra.Command, overrides *flagOverrides) {
	cmd.Flags().StringVar(&overrides.account, "account", "", "target registry account id")
	cmd.Flags().StringVar(&overrides.region, "region", "", "target registry region")
	cmd.Flags().StringVar(&overrides.baseRepo, "base-repo", "", "base repository, docker-dev or docker-release")
	cmd.Flags().StringVar(&overrides.platform, "platform", "", "platform to pull, e.g. linux/amd64")
	cmd.Flags().StringVar(&overrides.logPrefix, "log-prefix", "", "path prefix for the outcome lists")
	cmd.Flags().BoolVar(&overrides.skipPull, "skip-pull", false, "assume source images are already present locally")
	cmd.Flags().IntVar(&overrides.concurrency, "concurrency", 1, "how many artifacts to migrate at once")
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)
	rootCmd := &cobra.Command{
		Use:   "ecr-migrate",
		Short: "Migrate container images from a source artifact registry into Amazon ECR",
		Long: `ecr-migrate moves images published under a docker-dev or docker-release
path segment of a source registry into the matching base repository in
Amazon ECR. Images already present in the target are skipped unless they
are on the floating-tag refresh list. Every processed artifact is appended
to one of three outcome lists: failed, existed, or pushed.`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			log.L.Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if debug || os.Getenv("ECR_MIGRATE_DEBUG") != "" {
				log.L.Logger.SetLevel(logrus.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newImageCmd(&configPath))
	rootCmd.AddCommand(newEnsureRepoCmd(&configPath))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newImageCmd(configPath *string) *cobra.Command {
	var overrides flagOverrides
	cmd := &cobra.Command{
		Use:   "image REF [REF...]",
		Short: "Migrate one or more source references into ECR",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *configPath, overrides)
			if err != nil {
				return err
			}
			return runImages(cmd.Context(), cfg, args)
		},
	}
	registerFlags(cmd, &overrides)
	return cmd
}

func runImages(ctx context.Context, cfg migrate.Config, refs []string) error {
	baseRepo, err := migrate.ParseScope(cfg.BaseRepo)
	if err != nil {
		return err
	}

	sess, err := session.NewSession(aws.NewConfig().WithRegion(cfg.Region))
	if err != nil {
		return err
	}
	registry := migrate.NewRegistry(sess, cfg.Region)

	runtime, err := migrate.NewRuntime(migrate.RuntimeOptions{
		Platform:     cfg.Platform,
		PullUsername: cfg.SourceAuth.Username,
		PullPassword: cfg.SourceAuth.Password,
		PushAuth:     registry.Authorization,
	})
	if err != nil {
		return err
	}

	recorder := migrate.NewFileRecorder(cfg.LogPrefix)
	defer recorder.Close()

	migrator := &migrate.Migrator{
		Registry:     registry,
		Runtime:      runtime,
		Recorder:     recorder,
		Account:      cfg.Account,
		Region:       cfg.Region,
		BaseRepo:     baseRepo,
		SkipPull:     cfg.SkipPull,
		RefreshNames: cfg.RefreshNames,
	}

	// Failures are local to one artifact and never abort the others, so
	// the group collects results instead of cancelling.
	results := make([]error, len(refs))
	var g errgroup.Group
	g.SetLimit(cfg.Concurrency)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			if err := migrator.Migrate(ctx, ref); err != nil {
				log.G(ctx).WithError(err).WithField("artifact", ref).Error("migration failed")
				results[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()

	// The process exit code follows the last artifact's outcome.
	return results[len(results)-1]
}

func newEnsureRepoCmd(configPath *string) *cobra.Command {
	var overrides flagOverrides
	cmd := &cobra.Command{
		Use:   "ensure-repo NAME",
		Short: "Create an ECR repository with the fixed policy if it does not exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Only the region matters here; the repository name is given
			// directly.
			cfg, err := migrate.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			overrides.apply(cmd, &cfg)
			if cfg.Region == "" {
				return errors.New("region is required")
			}
			sess, err := session.NewSession(aws.NewConfig().WithRegion(cfg.Region))
			if err != nil {
				return err
			}
			registry := migrate.NewRegistry(sess, cfg.Region)
			return registry.EnsureRepository(cmd.Context(), args[0])
		},
	}
	registerFlags(cmd, &overrides)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("ecr-migrate %s\n", Version)
		},
	}
}

func loadConfig(cmd *cobra.Command, path string, overrides flagOverrides) (migrate.Config, error) {
	cfg, err := migrate.LoadConfig(path)
	if err != nil {
		return migrate.Config{}, err
	}
	overrides.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return migrate.Config{}, err
	}
	return cfg, nil
}
