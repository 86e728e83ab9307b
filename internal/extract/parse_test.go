/*
 * This file is part of Guest List Planner (https://github.com/atssj/prj-guest-list-planner).
 * Copyright (C) 2025 Guest List Planner contributors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package extract

import "testing"

func TestParseGuestInfoResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		check    func(t *testing.T, info *GuestInfo)
		wantErr  bool
	}{
		{
			name:     "full details",
			response: `{"familyName": "Smith", "adults": 2, "children": 1}`,
			check: func(t *testing.T, info *GuestInfo) {
				if info.FamilyName == nil || *info.FamilyName != "Smith" {
					t.Errorf("got %v, want Smith", info.FamilyName)
				}
				if info.Adults == nil || *info.Adults != 2 {
					t.Errorf("got %v, want 2", info.Adults)
				}
				if info.Children == nil || *info.Children != 1 {
					t.Errorf("got %v, want 1", info.Children)
				}
			},
		},
		{
			name:     "partial details stay absent",
			response: `{"familyName": "Okafor"}`,
			check: func(t *testing.T, info *GuestInfo) {
				if info.Adults != nil || info.Children != nil {
					t.Errorf("unstated counts must stay nil: %+v", info)
				}
			},
		},
		{
			name:     "zero children is kept",
			response: `{"familyName": "Rossi", "adults": 2, "children": 0}`,
			check: func(t *testing.T, info *GuestInfo) {
				if info.Children == nil || *info.Children != 0 {
					t.Errorf("got %v, want 0", info.Children)
				}
			},
		},
		{
			name:     "invalid counts are dropped",
			response: `{"adults": -3, "children": 1.5}`,
			check: func(t *testing.T, info *GuestInfo) {
				if info.Adults != nil || info.Children != nil {
					t.Errorf("invalid counts must be dropped, got %+v", info)
				}
			},
		},
		{
			name:     "no JSON",
			response: "cannot help",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := parseGuestInfoResponse(tt.response)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, info)
		})
	}
}
