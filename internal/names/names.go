// Package names generates throwaway display pseudonyms.
package names

import (
	"fmt"
	"math/rand/v2"
)

var adjectives = []string{
	"Brave", "Calm", "Clever", "Curious", "Daring", "Eager", "Fuzzy",
	"Gentle", "Happy", "Jolly", "Keen", "Lively", "Lucky", "Mellow",
	"Nimble", "Quiet", "Rapid", "Sly", "Sunny", "Swift", "Witty", "Zesty",
}

var animals = []string{
	"Badger", "Bison", "Crane", "Dingo", "Falcon", "Gecko", "Heron",
	"Ibex", "Jackal", "Koala", "Lemur", "Lynx", "Marmot", "Newt",
	"Otter", "Panda", "Quokka", "Raven", "Stoat", "Tapir", "Vole", "Wren",
}

// Pseudonym returns an adjective+animal name with a 3-digit suffix,
// e.g. "SwiftOtter042".
func Pseudonym() string {
	adj := adjectives[rand.IntN(len(adjectives))]
	animal := animals[rand.IntN(len(animals))]
	return fmt.Sprintf("%s%s%03d", adj, animal, rand.IntN(1000))
}
