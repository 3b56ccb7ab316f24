package record

// Source describes one backend resource a page loads from.
type Source struct {
	Name     string
	Path     string
	KeyField string
	Required []string
	// Params are always sent with list requests.
	Params map[string]any
}

// Built-in sources of the dashboard.
var (
	CorteFonasa = Source{
		Name:     "corte-fonasa",
		Path:     "corte-fonasa/",
		KeyField: "id",
		Required: []string{"id", "run"},
	}
	Validados = Source{
		Name:     "validados",
		Path:     "corte-fonasa/",
		KeyField: "id",
		Required: []string{"id", "run"},
		Params:   map[string]any{"validated_only": true, "all": true},
	}
	HPTrakcare = Source{
		Name:     "hp-trakcare",
		Path:     "hp-trakcare/",
		KeyField: "id",
		Required: []string{"id"},
	}
	NuevosUsuarios = Source{
		Name:     "nuevos-usuarios",
		Path:     "nuevos-usuarios/",
		KeyField: "id",
		Required: []string{"id", "run"},
	}
	HistorialCargas = Source{
		Name:     "historial-cargas",
		Path:     "historial-cargas/",
		KeyField: "id",
		Required: []string{"id"},
	}
)

var sources = map[string]Source{
	CorteFonasa.Name:     CorteFonasa,
	Validados.Name:       Validados,
	HPTrakcare.Name:      HPTrakcare,
	NuevosUsuarios.Name:  NuevosUsuarios,
	HistorialCargas.Name: HistorialCargas,
}

// LookupSource resolves a source by name.
func LookupSource(name string) (Source, error) {
	src, ok := sources[name]
	if !ok {
		return Source{}, ErrUnknownSource
	}
	return src, nil
}

// SourceNames lists the built-in source names.
func SourceNames() []string {
	return []string{
		CorteFonasa.Name,
		Validados.Name,
		HPTrakcare.Name,
		NuevosUsuarios.Name,
		HistorialCargas.Name,
	}
}
