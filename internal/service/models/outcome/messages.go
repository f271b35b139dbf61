package outcome

import "net/http"

// User-facing messages shown by the form and the list view.
const (
	MsgRegistered      = "Usuario registrado correctamente"
	MsgQueued          = "Sin conexión. El registro se enviará automáticamente al recuperar la conexión"
	MsgTimeout         = "El servidor tardó demasiado en responder. Intenta de nuevo más tarde"
	MsgRegisterFailed  = "Error al registrar el usuario"
	MsgListFailed      = "No se pudo cargar la lista de usuarios. Por favor, revisa tu conexión a Internet o intenta de nuevo más tarde."
	MsgListStale       = "Sin conexión. Mostrando la última lista de usuarios disponible"
	MsgCanceled        = "La solicitud fue cancelada"
	MsgValidation      = "Revisa los datos del formulario"
	MsgRejectedDefault = "El servidor rechazó la solicitud"
)

// Message returns the localized status text for an outcome that is not a success.
func Message(o Outcome) string {
	switch o.Kind {
	case KindSuccess:
		return MsgRegistered
	case KindServerError:
		return ServerMessage(o.Status)
	case KindTimeout:
		return MsgTimeout
	case KindCanceled:
		return MsgCanceled
	case KindExhaustedRetries:
		if o.Reason == KindTimeout {
			return MsgTimeout
		}

		return MsgRegisterFailed
	default:
		return MsgRegisterFailed
	}
}

// ServerMessage derives a message from an upstream status when its body carries none.
func ServerMessage(status int) string {
	switch {
	case status == http.StatusConflict:
		return "El usuario ya se encuentra registrado"
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return "El servidor rechazó los datos enviados"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "No autorizado para registrar usuarios"
	case status == http.StatusNotFound:
		return "Servicio de registro no encontrado"
	case status == http.StatusTooManyRequests:
		return "Demasiadas solicitudes. Intenta de nuevo en unos minutos"
	case status >= 500:
		return "Error interno del servidor. Intenta de nuevo más tarde"
	default:
		return MsgRejectedDefault
	}
}
