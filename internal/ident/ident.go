// Package ident hands out room codes and player identifiers.
//
// Room codes are two words (adjective-noun) sampled with crypto/rand, so
// they are easy to read aloud across a room. Player ids are UUIDs.
package ident

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/Seednode/bingohall/internal/common/uuid"
)

// IdentError is a custom error type for identifier errors
type IdentError string

// Error implements the error interface
func (e IdentError) Error() string {
	return string(e)
}

const (
	ErrResourceExhausted IdentError = "room code space exhausted"
	ErrNilConfig         IdentError = "config cannot be nil"
	ErrNilUUIDGenerator  IdentError = "UUID generator cannot be nil"
	ErrEmptyVocabulary   IdentError = "vocabulary cannot be empty"
)

// maxAttempts bounds the collision retries for a single code.
const maxAttempts = 64

var defaultAdjectives = []string{
	"amber", "brave", "brisk", "calm", "clever", "cosmic", "crimson", "dapper",
	"eager", "fancy", "fizzy", "gentle", "golden", "happy", "hazy", "jolly",
	"keen", "lively", "lucky", "mellow", "merry", "misty", "nimble", "noble",
	"plucky", "proud", "quick", "quiet", "rapid", "rosy", "rusty", "shiny",
	"silly", "silver", "snappy", "sunny", "swift", "tidy", "tiny", "velvet",
	"vivid", "wacky", "witty", "zany", "zesty", "bold", "cheery", "dizzy",
}

var defaultNouns = []string{
	"badger", "banjo", "beacon", "biscuit", "bobcat", "canyon", "comet", "cricket",
	"dolphin", "falcon", "ferret", "gecko", "glacier", "harbor", "heron", "jackal",
	"kettle", "koala", "lagoon", "lantern", "lemur", "meadow", "moose", "nebula",
	"otter", "panda", "parrot", "pepper", "pickle", "pigeon", "puffin", "quokka",
	"raven", "rocket", "saddle", "salmon", "sparrow", "teapot", "thistle", "tiger",
	"toucan", "trumpet", "tulip", "walrus", "willow", "wombat", "yak", "zephyr",
}

// Config holds configuration for the identifier generator
type Config struct {
	// UUIDGenerator produces player identifiers
	UUIDGenerator uuid.UUID

	// Adjectives and Nouns override the built-in vocabulary
	Adjectives []string
	Nouns      []string
}

// Generator produces room codes and player ids. It is safe for concurrent
// use; callers that need uniqueness must hold their own lock across
// NewRoomCode and the insert of the returned code.
type Generator struct {
	uuid       uuid.UUID
	adjectives []string
	nouns      []string
}

// New creates a Generator
func New(cfg *Config) (*Generator, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.UUIDGenerator == nil {
		return nil, ErrNilUUIDGenerator
	}

	g := &Generator{
		uuid:       cfg.UUIDGenerator,
		adjectives: defaultAdjectives,
		nouns:      defaultNouns,
	}

	if cfg.Adjectives != nil {
		g.adjectives = cfg.Adjectives
	}
	if cfg.Nouns != nil {
		g.nouns = cfg.Nouns
	}

	if len(g.adjectives) == 0 || len(g.nouns) == 0 {
		return nil, ErrEmptyVocabulary
	}

	return g, nil
}

// Capacity is the number of distinct codes the vocabulary can produce.
func (g *Generator) Capacity() int {
	return len(g.adjectives) * len(g.nouns)
}

// NewRoomCode returns a code for which taken reports false. live is the
// number of codes currently in use; once it reaches Capacity, or every
// attempt collides, ErrResourceExhausted is returned.
func (g *Generator) NewRoomCode(live int, taken func(string) bool) (string, error) {
	if live >= g.Capacity() {
		return "", ErrResourceExhausted
	}

	for range maxAttempts {
		code := g.pick(g.adjectives) + "-" + g.pick(g.nouns)
		if !taken(code) {
			return code, nil
		}
	}

	return "", ErrResourceExhausted
}

// NewPlayerID returns a globally unique player identifier
func (g *Generator) NewPlayerID() string {
	return g.uuid.NewUUID()
}

func (g *Generator) pick(words []string) string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}

	return words[binary.BigEndian.Uint32(b[:])%uint32(len(words))]
}
