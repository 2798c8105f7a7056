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

package config

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// isValidPath only checks the shape of a path. Whether it exists is up to
// the component which opens it.
func isValidPath(path string) error {
	if !utf8.ValidString(path) || len(path) == 0 || strings.ContainsRune(path, 0) {
		return fmt.Errorf("path is empty or contains invalid bytes")
	}

	invalidChars := `<>"|?*`
	if i := strings.IndexAny(path, invalidChars); i >= 0 {
		return fmt.Errorf("invalid character '%c' in path", path[i])
	}
	return nil
}
