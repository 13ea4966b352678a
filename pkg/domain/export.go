package domain

// GraphExport is the serializable form of a topology:
//
//	{ "v": [{"x":..,"y":..,"id":..}], "e": [{"s":..,"e":..,"u":..}], "i": [id, ...] }
type GraphExport struct {
	Vertices   []VertexExport `json:"v" yaml:"v" mapstructure:"v"`
	Edges      []EdgeExport   `json:"e" yaml:"e" mapstructure:"e"`
	Initiators []VertexID     `json:"i" yaml:"i" mapstructure:"i"`
}

// VertexExport is one vertex of a GraphExport.
type VertexExport struct {
	X  float64  `json:"x" yaml:"x" mapstructure:"x"`
	Y  float64  `json:"y" yaml:"y" mapstructure:"y"`
	ID VertexID `json:"id" yaml:"id" mapstructure:"id"`
}

// EdgeExport is one channel of a GraphExport. U marks undirected channels.
type EdgeExport struct {
	Start      VertexID `json:"s" yaml:"s" mapstructure:"s"`
	End        VertexID `json:"e" yaml:"e" mapstructure:"e"`
	Undirected bool     `json:"u" yaml:"u" mapstructure:"u"`
}
