// Copyright 2024 the gnostr Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This binary is the main entrypoint for the gnostr-recovery command line
// tool.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"flag"
	"github.com/chebizarro/gnostr-recovery/recovery"
	"github.com/chebizarro/gnostr-recovery/shamir"
	glog "github.com/golang/glog"
	"github.com/google/subcommands"
	"sigs.k8s.io/yaml"
)

const (
	// The default name for the recovery plan file.
	defaultPlanName string = "recovery-plan.yaml"

	// The current version, displayed via the `version` subcommand.
	recoveryVersion string = "0.1.0"
)

// recoveryPlan is the YAML document consumed by the setup command.
type recoveryPlan struct {
	Threshold uint8 `json:"threshold"`
	Guardians []struct {
		Npub  string `json:"npub"`
		Label string `json:"label"`
	} `json:"guardians"`
}

// readKey reads a private key from a file, or from stdin when the path is
// "-". Surrounding whitespace is dropped.
func readKey(path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// splitCmd handles CLI options for splitting a key into bare shares.
type splitCmd struct {
	threshold int
	shares    int
}

func (*splitCmd) Name() string { return "split" }
func (*splitCmd) Synopsis() string {
	return "splits a private key into threshold shares"
}
func (*splitCmd) Usage() string {
	return `Usage: gnostr-recovery split --threshold=<k> --shares=<n> <key_file>

Splits the nsec (or 64-character hex key) in key_file into n shares, any k
of which reconstruct the key. One encoded share is printed per line. The
shares are NOT encrypted; use the setup command to encrypt shares to
guardians.

Examples:
  Split a key 2-of-3:
    $ gnostr-recovery split --threshold=2 --shares=3 key.txt

  Split a key read from stdin:
    $ gnostr-recovery split --threshold=3 --shares=5 - < key.txt

Flags:
`
}
func (s *splitCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&s.threshold, "threshold", 0, "Number of shares required to reconstruct the key.")
	f.IntVar(&s.shares, "shares", 0, "Total number of shares to generate.")
}

func (s *splitCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 {
		glog.Errorf("Not enough arguments (expected key file)")
		return subcommands.ExitFailure
	}

	if err := shamir.ValidateParams(s.threshold, s.shares); err != nil {
		glog.Errorf("Invalid split parameters: %v", err.Error())
		return subcommands.ExitFailure
	}

	nsec, err := readKey(f.Arg(0))
	if err != nil {
		glog.Errorf("Failed to read key file: %v", err.Error())
		return subcommands.ExitFailure
	}

	key, err := recovery.ParsePrivateKey(nsec)
	if err != nil {
		glog.Errorf("Failed to parse private key: %v", err.Error())
		return subcommands.ExitFailure
	}
	defer key.Destroy()

	shares, err := shamir.Split(key.Bytes(), s.threshold, s.shares)
	if err != nil {
		glog.Errorf("Failed to split key: %v", err.Error())
		return subcommands.ExitFailure
	}
	defer shamir.WipeShares(shares)

	for _, share := range shares {
		encoded, err := shamir.EncodeShare(share)
		if err != nil {
			glog.Errorf("Failed to encode share: %v", err.Error())
			return subcommands.ExitFailure
		}
		fmt.Println(encoded)
	}
	return subcommands.ExitSuccess
}

// combineCmd handles CLI options for reconstructing a key from shares.
type combineCmd struct {
	threshold int
}

func (*combineCmd) Name() string { return "combine" }
func (*combineCmd) Synopsis() string {
	return "reconstructs a private key from collected shares"
}
func (*combineCmd) Usage() string {
	return `Usage: gnostr-recovery combine --threshold=<k> <shares_file>

Reads one encoded share per line from shares_file (or stdin when the file
is "-") and prints the reconstructed key as an nsec identifier.

Examples:
  Combine shares collected in a file:
    $ gnostr-recovery combine --threshold=2 shares.txt

  Combine shares from stdin:
    $ gnostr-recovery combine --threshold=2 - < shares.txt

Flags:
`
}
func (c *combineCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.threshold, "threshold", 0, "Number of shares required to reconstruct the key.")
}

func (c *combineCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 {
		glog.Errorf("Not enough arguments (expected shares file)")
		return subcommands.ExitFailure
	}

	var in io.Reader
	if f.Arg(0) == "-" {
		in = os.Stdin
	} else {
		file, err := os.Open(f.Arg(0))
		if err != nil {
			glog.Errorf("Failed to open shares file: %v", err.Error())
			return subcommands.ExitFailure
		}
		defer file.Close()
		in = file
	}

	var shares []shamir.Share
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		share, err := shamir.DecodeShare(line)
		if err != nil {
			glog.Errorf("Failed to decode share %q: %v", line, err.Error())
			return subcommands.ExitFailure
		}
		shares = append(shares, share)
	}
	if err := scanner.Err(); err != nil {
		glog.Errorf("Failed to read shares: %v", err.Error())
		return subcommands.ExitFailure
	}
	defer shamir.WipeShares(shares)

	if c.threshold <= 0 {
		c.threshold = len(shares)
	}
	if c.threshold > shamir.MaxShares {
		glog.Errorf("Threshold must be at most %d", shamir.MaxShares)
		return subcommands.ExitFailure
	}

	nsec, err := recovery.Recover(shares, uint8(c.threshold))
	if err != nil {
		glog.Errorf("Failed to reconstruct key: %v", err.Error())
		return subcommands.ExitFailure
	}
	fmt.Println(nsec)
	return subcommands.ExitSuccess
}

// setupCmd handles CLI options for setting up social recovery from a plan.
type setupCmd struct {
	planFile string
	storeDir string
	messages bool
}

func (*setupCmd) Name() string { return "setup" }
func (*setupCmd) Synopsis() string {
	return "sets up social recovery according to the given plan"
}
func (*setupCmd) Usage() string {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		glog.Errorf("Failed to get config directory location: %v", err.Error())
	}

	return fmt.Sprintf(`Usage: gnostr-recovery setup [--plan=<plan_file>] [--messages] <key_file>

Splits the key in key_file across the guardians named in the plan, encrypts
one share to each guardian, saves the recovery configuration, and prints one
encrypted share envelope per guardian. The plan is a YAML file:

  threshold: 2
  guardians:
    - npub: npub1...
      label: Alice
    - npub: npub1...
      label: Bob
    - npub: npub1...

Examples:
  Set up recovery using %s for the plan:
    $ gnostr-recovery setup key.txt

  Set up recovery with a specific plan, printing guardian-ready messages:
    $ gnostr-recovery setup --plan="my_plan.yaml" --messages - < key.txt

Flags:
`, fmt.Sprintf("%s/%s", cfgDir, defaultPlanName))
	// The flags are automatically printed after the returned text.
}
func (s *setupCmd) SetFlags(f *flag.FlagSet) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		glog.Errorf("Failed to get config directory location: %v", err.Error())
	}

	planFilePath := fmt.Sprintf("%s/%s", cfgDir, defaultPlanName)
	f.StringVar(&s.planFile, "plan", planFilePath, "Path to a recovery plan YAML file. Optional.")
	f.StringVar(&s.storeDir, "store-dir", "", "Directory for the recovery configuration. Defaults to the user config directory.")
	f.BoolVar(&s.messages, "messages", false, "Print full guardian messages instead of bare envelopes.")
}

func (s *setupCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	yamlBytes, err := os.ReadFile(s.planFile)
	if err != nil {
		glog.Errorf("Failed to read plan file: %v", err.Error())
		return subcommands.ExitFailure
	}

	jsonBytes, err := yaml.YAMLToJSON(yamlBytes)
	if err != nil {
		glog.Errorf("Failed to convert plan YAML to JSON: %v", err.Error())
		return subcommands.ExitFailure
	}

	var plan recoveryPlan
	if err := json.Unmarshal(jsonBytes, &plan); err != nil {
		glog.Errorf("Failed to unmarshal recovery plan: %v", err.Error())
		return subcommands.ExitFailure
	}
	if len(plan.Guardians) == 0 {
		glog.Errorf("No guardians found in plan file")
		return subcommands.ExitFailure
	}

	if f.NArg() < 1 {
		glog.Errorf("Not enough arguments (expected key file)")
		return subcommands.ExitFailure
	}

	nsec, err := readKey(f.Arg(0))
	if err != nil {
		glog.Errorf("Failed to read key file: %v", err.Error())
		return subcommands.ExitFailure
	}

	guardians := make([]*recovery.Guardian, 0, len(plan.Guardians))
	for _, g := range plan.Guardians {
		guardians = append(guardians, recovery.NewGuardian(g.Npub, g.Label))
	}

	config, envelopes, err := recovery.Setup(nsec, plan.Threshold, guardians)
	if err != nil {
		glog.Errorf("Failed to set up recovery: %v", err.Error())
		return subcommands.ExitFailure
	}

	var store *recovery.Store
	if s.storeDir != "" {
		store = recovery.NewStore(s.storeDir)
	} else {
		store, err = recovery.DefaultStore()
		if err != nil {
			glog.Errorf("Failed to locate config directory: %v", err.Error())
			return subcommands.ExitFailure
		}
	}
	if err := store.Save(config); err != nil {
		glog.Errorf("Failed to save recovery config: %v", err.Error())
		return subcommands.ExitFailure
	}

	fmt.Fprintln(os.Stderr, "Saved recovery config for", config.OwnerNpub)
	for i, envelope := range envelopes {
		guardian := config.Guardians[i]
		if s.messages {
			fmt.Println(recovery.FormatShareMessage(envelope, guardian.Label, config.OwnerNpub))
			fmt.Println()
		} else {
			fmt.Printf("%s\t%s\n", guardian.Npub, envelope)
		}
	}
	return subcommands.ExitSuccess
}

// decryptShareCmd handles CLI options for a guardian opening an envelope.
type decryptShareCmd struct {
	ownerNpub string
}

func (*decryptShareCmd) Name() string { return "decrypt-share" }
func (*decryptShareCmd) Synopsis() string {
	return "decrypts a received share envelope with the guardian's key"
}
func (*decryptShareCmd) Usage() string {
	return `Usage: gnostr-recovery decrypt-share --owner=<npub> <envelope_file> <key_file>

Opens the share envelope in envelope_file using the guardian key in
key_file and prints the decoded share. The owner's npub is required to
derive the shared encryption secret.

Examples:
  Decrypt a share envelope:
    $ gnostr-recovery decrypt-share --owner=npub1... envelope.json key.txt

  Decrypt with the envelope from stdin:
    $ gnostr-recovery decrypt-share --owner=npub1... - key.txt < envelope.json

Flags:
`
}
func (d *decryptShareCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&d.ownerNpub, "owner", "", "The identity owner's npub.")
}

func (d *decryptShareCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if d.ownerNpub == "" {
		glog.Errorf("The --owner flag is required")
		return subcommands.ExitFailure
	}
	if f.NArg() < 2 {
		glog.Errorf("Not enough arguments (expected envelope file and key file)")
		return subcommands.ExitFailure
	}

	var envelope []byte
	var err error
	if f.Arg(0) == "-" {
		envelope, err = io.ReadAll(os.Stdin)
	} else {
		envelope, err = os.ReadFile(f.Arg(0))
	}
	if err != nil {
		glog.Errorf("Failed to read envelope: %v", err.Error())
		return subcommands.ExitFailure
	}

	nsec, err := readKey(f.Arg(1))
	if err != nil {
		glog.Errorf("Failed to read key file: %v", err.Error())
		return subcommands.ExitFailure
	}

	share, err := recovery.DecryptShare(strings.TrimSpace(string(envelope)), nsec, d.ownerNpub)
	if err != nil {
		glog.Errorf("Failed to decrypt share: %v", err.Error())
		return subcommands.ExitFailure
	}
	defer share.Wipe()

	encoded, err := shamir.EncodeShare(share)
	if err != nil {
		glog.Errorf("Failed to encode share: %v", err.Error())
		return subcommands.ExitFailure
	}
	fmt.Println(encoded)
	return subcommands.ExitSuccess
}

// validateCmd handles CLI options for checking encoded shares.
type validateCmd struct{}

func (*validateCmd) Name() string { return "validate" }
func (*validateCmd) Synopsis() string {
	return "checks that encoded shares are well formed"
}
func (*validateCmd) Usage() string {
	return `Usage: gnostr-recovery validate <share>...

Checks each argument against the share encoding and prints a verdict per
share. Exits non-zero when any share is malformed.
`
}
func (*validateCmd) SetFlags(*flag.FlagSet) {}

func (*validateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 {
		glog.Errorf("Not enough arguments (expected at least one share)")
		return subcommands.ExitFailure
	}

	status := subcommands.ExitSuccess
	for _, arg := range f.Args() {
		if shamir.ValidShare(arg) {
			fmt.Printf("valid\t%s\n", arg)
		} else {
			fmt.Printf("malformed\t%s\n", arg)
			status = subcommands.ExitFailure
		}
	}
	return status
}

// versionCmd handles CLI options for the version command.
type versionCmd struct{}

func (*versionCmd) Name() string           { return "version" }
func (*versionCmd) Synopsis() string       { return "prints the current version" }
func (*versionCmd) Usage() string          { return "Usage: gnostr-recovery version" }
func (*versionCmd) SetFlags(*flag.FlagSet) {}
func (*versionCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	fmt.Printf("gnostr-recovery Version %s\n", recoveryVersion)
	return subcommands.ExitSuccess
}

func main() {
	flag.Parse()

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(&splitCmd{}, "")
	subcommands.Register(&combineCmd{}, "")
	subcommands.Register(&setupCmd{}, "")
	subcommands.Register(&decryptShareCmd{}, "")
	subcommands.Register(&validateCmd{}, "")
	subcommands.Register(&versionCmd{}, "")

	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
