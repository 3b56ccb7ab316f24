package upload

// Upload is one entry of the upload history (historial de cargas).
type Upload struct {
	ID                  int64    `json:"id"`
	Tipo                string   `json:"tipo"`
	NombreArchivo       string   `json:"nombreArchivo"`
	RegistrosProcesados int      `json:"registrosProcesados"`
	RegistrosExitosos   int      `json:"registrosExitosos"`
	RegistrosError      int      `json:"registrosError"`
	Estado              string   `json:"estado"`
	UsuarioID           int64    `json:"usuarioId"`
	UsuarioNombre       string   `json:"usuarioNombre"`
	CreadoEl            string   `json:"creadoEl"`
	DetalleErrores      []string `json:"detalleErrores,omitempty"`
}

// Upload kinds.
const (
	TipoUsuarios = "usuarios"
	TipoCortes   = "cortes"
)

// Upload states.
const (
	EstadoCompletado = "completado"
	EstadoProcesando = "procesando"
	EstadoError      = "error"
)

// Page is one page of history.
type Page struct {
	Count   int      `json:"count"`
	Results []Upload `json:"results"`
}
