package casestudy

import "maps"

// Clone returns a deep copy of the project so resolver outputs and saver
// snapshots never alias live editing state.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p

	clonePos := func(v *int) *int {
		if v == nil {
			return nil
		}
		c := *v
		return &c
	}
	out.Positions.ProjectImages = clonePos(p.Positions.ProjectImages)
	out.Positions.Videos = clonePos(p.Positions.Videos)
	out.Positions.FlowDiagrams = clonePos(p.Positions.FlowDiagrams)
	out.Positions.SolutionCards = clonePos(p.Positions.SolutionCards)
	if p.Positions.Flags != nil {
		out.Positions.Flags = maps.Clone(p.Positions.Flags)
	}

	cloneEntry := func(e *SidebarEntry) *SidebarEntry {
		if e == nil {
			return nil
		}
		c := *e
		return &c
	}
	out.Sidebars.Sidebar1 = cloneEntry(p.Sidebars.Sidebar1)
	out.Sidebars.Sidebar2 = cloneEntry(p.Sidebars.Sidebar2)

	out.Images = append([]ImageRecord(nil), p.Images...)
	out.Videos = append([]VideoRecord(nil), p.Videos...)
	out.Diagrams = append([]ImageRecord(nil), p.Diagrams...)

	return &out
}
