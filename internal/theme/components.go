package theme

// Component is the resolved palette of one colored component family, as
// used for notes, blocks, labels and buttons.
type Component struct {
	Family                string `json:"family"`
	Color                 string `json:"color"`
	LinkActiveColor       string `json:"link_active_color"`
	FilledColor           string `json:"filled_color"`
	FilledBackgroundColor string `json:"filled_background_color"`
	FilledLinkColor       string `json:"filled_link_color"`
	FilledLinkActiveColor string `json:"filled_link_active_color"`
}

// Components returns the palettes of every component family, in Families
// order. A family token that was not resolved fails with ErrUndefinedToken.
func Components(r *Resolved) ([]Component, error) {
	out := make([]Component, 0, len(Families))
	for _, family := range Families {
		values := make([]string, len(componentSuffixes))
		for i, suffix := range componentSuffixes {
			v, err := r.Get(family + "-" + suffix)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		out = append(out, Component{
			Family:                family,
			Color:                 values[0],
			LinkActiveColor:       values[1],
			FilledColor:           values[2],
			FilledBackgroundColor: values[3],
			FilledLinkColor:       values[4],
			FilledLinkActiveColor: values[5],
		})
	}
	return out, nil
}
