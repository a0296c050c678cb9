package models

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Body identifies one of the fixed celestial bodies tracked in a snapshot.
type Body string

const (
	Sun     Body = "sun"
	Moon    Body = "moon"
	Mercury Body = "mercury"
	Venus   Body = "venus"
	Mars    Body = "mars"
	Jupiter Body = "jupiter"
	Saturn  Body = "saturn"
	Uranus  Body = "uranus"
	Neptune Body = "neptune"
	Pluto   Body = "pluto"
)

// Bodies lists every tracked body in canonical order. Pair enumeration,
// tallies and serialization all walk this slice.
var Bodies = []Body{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto}

var bodyWeights = map[Body]int{
	Sun:     3,
	Moon:    3,
	Mercury: 2,
	Venus:   2,
	Mars:    2,
	Jupiter: 2,
	Saturn:  2,
	Uranus:  1,
	Neptune: 1,
	Pluto:   1,
}

// Weight returns the fixed distribution weight of the body.
func (b Body) Weight() int {
	return bodyWeights[b]
}

// Valid reports whether b is one of the tracked bodies.
func (b Body) Valid() bool {
	_, ok := bodyWeights[b]
	return ok
}

// DisplayName returns the capitalized body name, e.g. "Mercury".
func (b Body) DisplayName() string {
	return cases.Title(language.English).String(string(b))
}

// TotalWeight is the sum of all body weights.
func TotalWeight() int {
	total := 0
	for _, b := range Bodies {
		total += b.Weight()
	}
	return total
}

// ParseBody resolves a case-insensitive body name.
func ParseBody(s string) (Body, error) {
	b := Body(strings.ToLower(strings.TrimSpace(s)))
	if !b.Valid() {
		return "", fmt.Errorf("unknown body %q", s)
	}
	return b, nil
}

// Element is the classical element of a zodiac sign.
type Element string

const (
	Fire  Element = "fire"
	Earth Element = "earth"
	Air   Element = "air"
	Water Element = "water"
)

// Elements lists the elements in tally order.
var Elements = []Element{Fire, Earth, Air, Water}

// Modality is the quality (cardinal/fixed/mutable) of a zodiac sign.
type Modality string

const (
	Cardinal Modality = "cardinal"
	Fixed    Modality = "fixed"
	Mutable  Modality = "mutable"
)

// Modalities lists the modalities in tally order.
var Modalities = []Modality{Cardinal, Fixed, Mutable}

// ZodiacSign is an index in [0,11] into the canonical sign order.
type ZodiacSign int

const (
	Aries ZodiacSign = iota
	Taurus
	Gemini
	Cancer
	Leo
	Virgo
	Libra
	Scorpio
	Sagittarius
	Capricorn
	Aquarius
	Pisces
)

// SignCount is the number of zodiac signs.
const SignCount = 12

var signNames = [SignCount]string{
	"Aries", "Taurus", "Gemini", "Cancer",
	"Leo", "Virgo", "Libra", "Scorpio",
	"Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// Elements cycle fire, earth, air, water starting at Aries; modalities cycle
// cardinal, fixed, mutable. Each table covers all twelve signs exactly once.
var signElements = [SignCount]Element{
	Fire, Earth, Air, Water,
	Fire, Earth, Air, Water,
	Fire, Earth, Air, Water,
}

var signModalities = [SignCount]Modality{
	Cardinal, Fixed, Mutable,
	Cardinal, Fixed, Mutable,
	Cardinal, Fixed, Mutable,
	Cardinal, Fixed, Mutable,
}

// String returns the sign name.
func (s ZodiacSign) String() string {
	if s < 0 || int(s) >= SignCount {
		return "Unknown"
	}
	return signNames[s]
}

// Element returns the element of the sign.
func (s ZodiacSign) Element() Element {
	return signElements[s]
}

// Modality returns the modality of the sign.
func (s ZodiacSign) Modality() Modality {
	return signModalities[s]
}

// MarshalText encodes the sign as its name.
func (s ZodiacSign) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= SignCount {
		return nil, fmt.Errorf("invalid zodiac sign index %d", int(s))
	}
	return []byte(signNames[s]), nil
}

// UnmarshalText decodes a sign name.
func (s *ZodiacSign) UnmarshalText(text []byte) error {
	name := string(text)
	for i, n := range signNames {
		if strings.EqualFold(n, name) {
			*s = ZodiacSign(i)
			return nil
		}
	}
	return fmt.Errorf("unknown zodiac sign %q", name)
}

// ZodiacMode selects tropical or sidereal longitudes.
type ZodiacMode string

const (
	Tropical ZodiacMode = "tropical"
	Sidereal ZodiacMode = "sidereal"
)

// ZodiacModes lists the supported modes.
var ZodiacModes = []ZodiacMode{Tropical, Sidereal}

// ParseZodiacMode parses a mode name. The boolean spellings "true"/"false"
// are accepted for the sidereal flag used by older clients.
func ParseZodiacMode(s string) (ZodiacMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tropical", "false":
		return Tropical, nil
	case "sidereal", "true":
		return Sidereal, nil
	default:
		return "", fmt.Errorf("unknown zodiac mode %q", s)
	}
}
