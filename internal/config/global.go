// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride pins ConfigDir to a fixed path. Tests set it so that
// config file lookup, CreateDefaultConfig, and Save all land in a temp
// directory instead of the invoking user's real config directory.
var configDirOverride string

// Reset clears the config directory override. Pair every
// SetConfigDirOverride in a test with t.Cleanup(Reset).
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride pins the config directory to dir. Setting HOME is
// not enough on every platform (os.UserHomeDir ignores it on some), so
// tests use this instead of faking the environment.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
