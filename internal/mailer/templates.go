package mailer

import (
	"fmt"
	"html"
)

// PasswordReset renders the reset email for link.
func PasswordReset(to, link string) Message {
	escaped := html.EscapeString(link)
	return Message{
		To:      to,
		Subject: "Restablece tu contraseña de Pulso",
		Text: fmt.Sprintf("Para elegir una nueva contraseña abre este enlace:\n\n%s\n\n"+
			"El enlace caduca en 1 hora y solo se puede usar una vez. "+
			"Si no lo pediste, ignora este correo.", link),
		HTML: fmt.Sprintf(`
			<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto; padding: 24px;">
				<h2 style="color: #333;">Restablece tu contraseña</h2>
				<p>Pulsa el botón para elegir una nueva contraseña:</p>
				<a href="%s" style="display: inline-block; background: #6366f1; color: white; padding: 12px 24px; border-radius: 8px; text-decoration: none; font-weight: 600;">
					Nueva contraseña
				</a>
				<p style="color: #888; font-size: 14px; margin-top: 16px;">
					El enlace caduca en 1 hora y solo se puede usar una vez.
				</p>
				<p style="color: #aaa; font-size: 12px;">
					Si no lo pediste, puedes ignorar este correo.
				</p>
			</div>
		`, escaped),
	}
}
