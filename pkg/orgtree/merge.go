package orgtree

// TeamRef is the per-staff team annotation attached to list and tree
// responses.
type TeamRef struct {
	TeamID   int64  `json:"team_id"`
	TeamName string `json:"team_name"`
}

// Membership is one active staff-team association row.
type Membership struct {
	StaffID  int64
	TeamID   int64
	TeamName string
}

// MergeTeams joins staff ids with their team memberships in one linear pass.
// staffIDs must be sorted ascending and memberships must be sorted by
// StaffID; both come straight from ordered queries. Every staff id gets an
// entry, ids with no memberships map to an empty slice.
func MergeTeams(staffIDs []int64, memberships []Membership) map[int64][]TeamRef {
	result := make(map[int64][]TeamRef, len(staffIDs))
	i := 0
	for _, staffID := range staffIDs {
		teams := []TeamRef{}
		for i < len(memberships) && memberships[i].StaffID < staffID {
			i++
		}
		for i < len(memberships) && memberships[i].StaffID == staffID {
			teams = append(teams, TeamRef{TeamID: memberships[i].TeamID, TeamName: memberships[i].TeamName})
			i++
		}
		result[staffID] = teams
	}
	return result
}
