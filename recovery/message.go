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

package recovery

import "fmt"

// shortNpubLen is how much of the owner's npub appears in guardian-facing
// text. Enough to recognize, not enough to mistake for the full key.
const shortNpubLen = 20

// FormatShareMessage renders a human-readable message for delivering an
// encrypted share to a guardian, including safekeeping instructions.
func FormatShareMessage(encryptedShare, guardianLabel, ownerNpub string) string {
	if encryptedShare == "" || ownerNpub == "" {
		return ""
	}

	name := guardianLabel
	if name == "" {
		name = "Guardian"
	}
	shortNpub := ownerNpub
	if len(shortNpub) > shortNpubLen {
		shortNpub = shortNpub[:shortNpubLen]
	}

	return fmt.Sprintf("Hello %s,\n\n"+
		"You have been designated as a recovery guardian for the Nostr identity: %s...\n\n"+
		"Please save the following encrypted recovery share in a secure location. "+
		"You may be asked to provide this share if the owner needs to recover their key.\n\n"+
		"IMPORTANT: Never share this with anyone except the original owner during recovery.\n\n"+
		"--- BEGIN RECOVERY SHARE ---\n%s\n--- END RECOVERY SHARE ---\n\n"+
		"To confirm receipt, please reply to this message.",
		name, shortNpub, encryptedShare)
}
