package models

import "fmt"

// Reward describes what a user earns for completing a rewarded video.
type Reward struct {
	Label  string `json:"label"`
	Amount int    `json:"amount"`
}

// IsValid reports whether the reward carries a label and a positive amount.
// The zero Reward is the "no reward" sentinel.
func (r Reward) IsValid() bool {
	return r.Label != "" && r.Amount > 0
}

func (r Reward) String() string {
	if !r.IsValid() {
		return "(invalid reward)"
	}
	return fmt.Sprintf("%d %s", r.Amount, r.Label)
}

// ContainsReward reports whether r is present in rewards.
func ContainsReward(rewards []Reward, r Reward) bool {
	for _, candidate := range rewards {
		if candidate == r {
			return true
		}
	}
	return false
}
