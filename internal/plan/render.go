package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Describe renders one action as a single deterministic line. The format is
// stable: golden files and fingerprints depend on it.
func Describe(a Action) string {
	switch act := a.(type) {
	case *InsertRoot:
		return fmt.Sprintf("InsertRoot %s id=%s", act.Entity(), act.IDSource())
	case *Insert:
		return fmt.Sprintf("Insert %s qualifier=%s id=%s", act.Path, act.Qualifier, act.IDSource())
	case *Merge:
		return fmt.Sprintf("Merge %s qualifier=%s id=%s", act.Path, act.Qualifier, act.IDSource())
	case *UpdateRoot:
		return fmt.Sprintf("UpdateRoot %s id=%v", act.Entity(), act.ID)
	case *Update:
		return fmt.Sprintf("Update %s", act.Path)
	case *Delete:
		return fmt.Sprintf("Delete %s scope=%v", act.Path, act.Scope)
	case *DeleteAll:
		return fmt.Sprintf("DeleteAll %s", act.Path)
	case *DeleteRoot:
		return fmt.Sprintf("DeleteRoot %s id=%v", act.Entity(), act.ID)
	case *DeleteAllRoot:
		return fmt.Sprintf("DeleteAllRoot %s", act.Entity())
	case *AcquireLockRoot:
		return fmt.Sprintf("AcquireLockRoot %s id=%v", act.Entity(), act.ID)
	case *AcquireLockAllRoot:
		return fmt.Sprintf("AcquireLockAllRoot %s", act.Entity())
	case *BatchInsertRoot:
		return fmt.Sprintf("BatchInsertRoot %s n=%d id=%s", act.Entity(), len(act.Actions), act.IDSource())
	case *BatchInsert:
		return fmt.Sprintf("BatchInsert %s n=%d id=%s", act.Path, len(act.Actions), act.IDSource())
	case *BatchDelete:
		return fmt.Sprintf("BatchDelete %s n=%d", act.Path, len(act.Actions))
	default:
		panic(fmt.Sprintf("plan: unknown action type %T", a))
	}
}

// RenderText renders an ordered action list, one line per action, with batch
// members indented under their wrapper. The output ends with a newline.
func RenderText(actions []Action) string {
	var b strings.Builder
	for _, a := range actions {
		b.WriteString(Describe(a))
		b.WriteByte('\n')
		switch act := a.(type) {
		case *BatchInsertRoot:
			for _, sub := range act.Actions {
				b.WriteString("  " + Describe(sub) + "\n")
			}
		case *BatchInsert:
			for _, sub := range act.Actions {
				b.WriteString("  " + Describe(sub) + "\n")
			}
		case *BatchDelete:
			for _, sub := range act.Actions {
				b.WriteString("  " + Describe(sub) + "\n")
			}
		}
	}
	return b.String()
}

// Fingerprint returns a stable hex digest of the rendered plan. Strings are
// NFC-normalized before hashing so visually identical plans hash identically
// regardless of the Unicode composition of property names and keys.
func Fingerprint(actions []Action) string {
	canonical := norm.NFC.String(RenderText(actions))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
