// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package advisory

import (
	"fmt"
	"strings"

	gocvss20 "github.com/pandatix/go-cvss/20"
	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
	gocvss40 "github.com/pandatix/go-cvss/40"
)

type Rating string

const (
	RatingNone     Rating = "none"
	RatingLow      Rating = "low"
	RatingMedium   Rating = "medium"
	RatingHigh     Rating = "high"
	RatingCritical Rating = "critical"
)

type Severity struct {
	Score  float64
	Rating Rating
	Vector string
}

func ratingFromScore(score float64) Rating {
	switch {
	case score == 0:
		return RatingNone
	case score < 4:
		return RatingLow
	case score < 7:
		return RatingMedium
	case score < 9:
		return RatingHigh
	default:
		return RatingCritical
	}
}

// ParseSeverity computes the base score of a cvss vector. Versions 2.0, 3.0,
// 3.1 and 4.0 are supported. Vectors without a "CVSS:" prefix are treated as 2.0.
func ParseSeverity(vector string) (*Severity, error) {
	vector = strings.TrimSpace(vector)
	var score float64
	switch {
	case strings.HasPrefix(vector, "CVSS:3.0"):
		cvss, err := gocvss30.ParseVector(vector)
		if err != nil {
			return nil, fmt.Errorf("invalid cvss 3.0 vector %q: %w", vector, err)
		}
		score = cvss.BaseScore()
	case strings.HasPrefix(vector, "CVSS:3.1"):
		cvss, err := gocvss31.ParseVector(vector)
		if err != nil {
			return nil, fmt.Errorf("invalid cvss 3.1 vector %q: %w", vector, err)
		}
		score = cvss.BaseScore()
	case strings.HasPrefix(vector, "CVSS:4.0"):
		cvss, err := gocvss40.ParseVector(vector)
		if err != nil {
			return nil, fmt.Errorf("invalid cvss 4.0 vector %q: %w", vector, err)
		}
		score = cvss.Score()
	default:
		cvss, err := gocvss20.ParseVector(vector)
		if err != nil {
			return nil, fmt.Errorf("invalid cvss vector %q: %w", vector, err)
		}
		score = cvss.BaseScore()
	}

	return &Severity{
		Score:  score,
		Rating: ratingFromScore(score),
		Vector: vector,
	}, nil
}
