// Package gtc45 implements the GTC-45 qualitative hazard scoring method:
// deficiency (ND) x exposure (NE) gives the probability level (NP), and
// NP x consequence (NC) gives the risk level (NR).
package gtc45

import "fmt"

var (
	allowedDeficiency  = map[int]bool{2: true, 6: true, 10: true}
	allowedExposure    = map[int]bool{1: true, 2: true, 3: true, 4: true}
	allowedConsequence = map[int]bool{10: true, 25: true, 60: true, 100: true}
)

// DeficiencyValues, ExposureValues and ConsequenceValues list the accepted
// scores in ascending order.
var (
	DeficiencyValues  = []int{2, 6, 10}
	ExposureValues    = []int{1, 2, 3, 4}
	ConsequenceValues = []int{10, 25, 60, 100}
)

func ValidDeficiency(v int) bool  { return allowedDeficiency[v] }
func ValidExposure(v int) bool    { return allowedExposure[v] }
func ValidConsequence(v int) bool { return allowedConsequence[v] }

// ValidateScores checks a persisted ND/NE/NC triple. The three scores are
// optional but must be supplied together.
func ValidateScores(nd, ne, nc *int) error {
	set := 0
	for _, v := range []*int{nd, ne, nc} {
		if v != nil {
			set++
		}
	}
	if set != 0 && set != 3 {
		return fmt.Errorf("nd, ne and nc must be provided together")
	}
	if nd != nil && !ValidDeficiency(*nd) {
		return fmt.Errorf("invalid nd: %d (allowed %v)", *nd, DeficiencyValues)
	}
	if ne != nil && !ValidExposure(*ne) {
		return fmt.Errorf("invalid ne: %d (allowed %v)", *ne, ExposureValues)
	}
	if nc != nil && !ValidConsequence(*nc) {
		return fmt.Errorf("invalid nc: %d (allowed %v)", *nc, ConsequenceValues)
	}
	return nil
}

// Probability returns ND x NE. ok is false when either score is missing or
// outside its enumeration.
func Probability(nd, ne *int) (np int, ok bool) {
	if nd == nil || ne == nil {
		return 0, false
	}
	if !ValidDeficiency(*nd) || !ValidExposure(*ne) {
		return 0, false
	}
	return *nd * *ne, true
}

// Risk returns NP x NC. ok is false when any score is missing or invalid.
func Risk(nd, ne, nc *int) (nr int, ok bool) {
	if nc == nil || !ValidConsequence(*nc) {
		return 0, false
	}
	np, ok := Probability(nd, ne)
	if !ok {
		return 0, false
	}
	return np * *nc, true
}
