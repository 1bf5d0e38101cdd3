package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"handoff/internal/manifest"
)

func newManifestCommand(ctx *commandContext) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Generate or install the browser host manifest",
	}
	manifestCmd.AddCommand(newManifestPrintCommand(ctx))
	manifestCmd.AddCommand(newManifestInstallCommand(ctx))
	return manifestCmd
}

type manifestFlags struct {
	browser  string
	hostPath string
}

func (f *manifestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.browser, "browser", "b", string(manifest.Firefox), "Target browser (firefox, chrome, chromium)")
	cmd.Flags().StringVar(&f.hostPath, "host-path", "", "Absolute path to the handoff binary (defaults to this executable)")
}

func (f *manifestFlags) build(ctx *commandContext) (manifest.Browser, manifest.Manifest, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return "", manifest.Manifest{}, err
	}
	browser, err := manifest.ParseBrowser(f.browser)
	if err != nil {
		return "", manifest.Manifest{}, err
	}
	hostPath, err := resolveHostPath(f.hostPath)
	if err != nil {
		return "", manifest.Manifest{}, err
	}
	m, err := manifest.Build(browser, cfg.Manifest, hostPath)
	if err != nil {
		return "", manifest.Manifest{}, err
	}
	return browser, m, nil
}

func newManifestPrintCommand(ctx *commandContext) *cobra.Command {
	var flags manifestFlags
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print the host manifest JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := flags.build(ctx)
			if err != nil {
				return err
			}
			data, err := m.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newManifestInstallCommand(ctx *commandContext) *cobra.Command {
	var flags manifestFlags
	var target string

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the host manifest for the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			browser, m, err := flags.build(ctx)
			if err != nil {
				return err
			}
			path := strings.TrimSpace(target)
			if path == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("resolve home directory: %w", err)
				}
				path, err = manifest.InstallPath(browser, runtime.GOOS, home, m.Name)
				if err != nil {
					return err
				}
			}
			if err := manifest.Install(m, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Installed %s manifest for %s at %s\n", browser, m.Name, path)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&target, "path", "", "Write the manifest here instead of the browser's per-user directory")
	return cmd
}

func resolveHostPath(flagValue string) (string, error) {
	if value := strings.TrimSpace(flagValue); value != "" {
		abs, err := filepath.Abs(value)
		if err != nil {
			return "", fmt.Errorf("resolve host path: %w", err)
		}
		return abs, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate handoff executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}
