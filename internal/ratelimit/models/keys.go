package models

import (
	"fmt"
	"strings"
)

// KeyPrefix names what the bucket is keyed by.
type KeyPrefix string

const (
	KeyPrefixIP   KeyPrefix = "ip"
	KeyPrefixUser KeyPrefix = "user"
)

// RateLimitKey is a bucket key of the form "<class>:<prefix>:<identifier>",
// e.g. "proof_verify:ip:203.0.113.9".
type RateLimitKey struct {
	class      EndpointClass
	prefix     KeyPrefix
	identifier string
}

func NewRateLimitKey(class EndpointClass, prefix KeyPrefix, identifier string) RateLimitKey {
	return RateLimitKey{
		class:      class,
		prefix:     prefix,
		identifier: sanitizeKeySegment(identifier),
	}
}

// NewIPKey keys a bucket by client IP.
func NewIPKey(class EndpointClass, ip string) RateLimitKey {
	return NewRateLimitKey(class, KeyPrefixIP, ip)
}

func (k RateLimitKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.class, k.prefix, k.identifier)
}

// sanitizeKeySegment escapes the key delimiter so a caller-controlled
// identifier cannot address another bucket. IPv6 addresses contain ':'.
//
//	"a:b"  -> "a_cb"
//	"a_b"  -> "a__b"
//	"a_:b" -> "a___cb"
func sanitizeKeySegment(s string) string {
	s = strings.ReplaceAll(s, "_", "__")
	s = strings.ReplaceAll(s, ":", "_c")
	return s
}
