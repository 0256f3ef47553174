package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Extension configures the install coordinator and external providers.
type Extension struct {
	// InstallDir is where applied packages live.
	InstallDir string `json:"install_dir" yaml:"install_dir"`

	// ExternalPrefFiles are JSON preference files enumerating external
	// installs, each watched for changes.
	ExternalPrefFiles []string `json:"external_pref_files" yaml:"external_pref_files"`

	// RegistryFile is the registry-sourced preference file, if any.
	RegistryFile string `json:"registry_file" yaml:"registry_file"`

	// PolicyUpdateURLs maps extension id to the forced update url demanded
	// by enterprise policy.
	PolicyUpdateURLs map[string]string `json:"policy_update_urls" yaml:"policy_update_urls"`

	// CheckInterval is how often external providers are reconciled; empty
	// disables the periodic scan.
	CheckInterval string `json:"check_interval" yaml:"check_interval"`

	// SupportedRequirements lists host capabilities satisfiable on this
	// machine; manifests demanding anything else install disabled.
	SupportedRequirements []string `json:"supported_requirements" yaml:"supported_requirements"`

	// BlockedIDs is the locally administered load blocklist; "*" blocks
	// everything not explicitly allowed.
	BlockedIDs []string `json:"blocked_ids" yaml:"blocked_ids"`
	AllowedIDs []string `json:"allowed_ids" yaml:"allowed_ids"`
}

func getExtensionConfig(v *viper.Viper) *Extension {
	return &Extension{
		InstallDir:            v.GetString("extension.install_dir"),
		ExternalPrefFiles:     v.GetStringSlice("extension.external_pref_files"),
		RegistryFile:          v.GetString("extension.registry_file"),
		PolicyUpdateURLs:      v.GetStringMapString("extension.policy_update_urls"),
		CheckInterval:         v.GetString("extension.check_interval"),
		SupportedRequirements: v.GetStringSlice("extension.supported_requirements"),
		BlockedIDs:            v.GetStringSlice("extension.blocked_ids"),
		AllowedIDs:            v.GetStringSlice("extension.allowed_ids"),
	}
}

// Validate checks the extension configuration.
func (e *Extension) Validate() error {
	if e.CheckInterval != "" {
		if _, err := time.ParseDuration(e.CheckInterval); err != nil {
			return fmt.Errorf("invalid check_interval: %w", err)
		}
	}
	return nil
}
