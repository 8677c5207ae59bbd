package parser

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// StableMemberID returns a deterministic ID for a declared member.
// Format: file|line|kind|owner.name|type-hash.
func StableMemberID(file string, member MemberDecl) string {
	base := fmt.Sprintf("%s|%d|%s|%s.%s", file, member.Line, member.Kind.String(), member.Owner, member.Name)

	if member.TypeName == "" {
		return base
	}

	typeHash := sha1.Sum([]byte(member.TypeName))
	return fmt.Sprintf("%s|%s", base, hex.EncodeToString(typeHash[:4]))
}
