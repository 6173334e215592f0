// ABOUTME: TrackNodeType describes a node's ports and the port pairs each group connects.
// ABOUTME: Also defines the five builtin node types every infrastructure knows about.
package schema

// PortConnection links two ports of a node inside one group.
type PortConnection struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

// StaticGroup is the group name of nodes that have a single fixed position.
const StaticGroup = "STATIC"

const (
	LinkNodeType             = "link"
	PointSwitchNodeType      = "point_switch"
	CrossingNodeType         = "crossing"
	SingleSlipSwitchNodeType = "single_slip_switch"
	DoubleSlipSwitchNodeType = "double_slip_switch"
)

// BuiltinNodeTypes returns the builtin node types keyed by id. The returned
// map is fresh on every call.
func BuiltinNodeTypes() map[string]TrackNodeTypeObject {
	return map[string]TrackNodeTypeObject{
		LinkNodeType: {
			ID:    LinkNodeType,
			Ports: []string{"A", "B"},
			Groups: map[string][]PortConnection{
				StaticGroup: {{Src: "A", Dst: "B"}},
			},
		},
		PointSwitchNodeType: {
			ID:    PointSwitchNodeType,
			Ports: []string{"A", "B1", "B2"},
			Groups: map[string][]PortConnection{
				"A_B1": {{Src: "A", Dst: "B1"}},
				"A_B2": {{Src: "A", Dst: "B2"}},
			},
		},
		CrossingNodeType: {
			ID:    CrossingNodeType,
			Ports: []string{"A1", "B1", "A2", "B2"},
			Groups: map[string][]PortConnection{
				StaticGroup: {{Src: "A1", Dst: "B1"}, {Src: "A2", Dst: "B2"}},
			},
		},
		SingleSlipSwitchNodeType: {
			ID:    SingleSlipSwitchNodeType,
			Ports: []string{"A1", "A2", "B1", "B2"},
			Groups: map[string][]PortConnection{
				StaticGroup: {{Src: "A1", Dst: "B1"}, {Src: "A2", Dst: "B2"}},
				"A1_B2":     {{Src: "A1", Dst: "B2"}},
			},
		},
		DoubleSlipSwitchNodeType: {
			ID:    DoubleSlipSwitchNodeType,
			Ports: []string{"A1", "A2", "B1", "B2"},
			Groups: map[string][]PortConnection{
				"A1_B1": {{Src: "A1", Dst: "B1"}},
				"A1_B2": {{Src: "A1", Dst: "B2"}},
				"A2_B1": {{Src: "A2", Dst: "B1"}},
				"A2_B2": {{Src: "A2", Dst: "B2"}},
			},
		},
	}
}

var builtinNodeTypes = BuiltinNodeTypes()

// BuiltinNodeType looks up a builtin node type. The result must not be modified.
func BuiltinNodeType(id string) (TrackNodeTypeObject, bool) {
	t, ok := builtinNodeTypes[id]
	return t, ok
}

// IsBuiltinNodeType reports whether id names a builtin node type.
func IsBuiltinNodeType(id string) bool {
	_, ok := builtinNodeTypes[id]
	return ok
}
