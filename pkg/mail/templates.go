package mail

import (
	"bytes"
	"html/template"
	textTemplate "text/template"
)

// PasswordResetData fills the password reset email
type PasswordResetData struct {
	Name      string
	ResetLink string
	ExpiresIn string
}

// WelcomeData fills the registration welcome email
type WelcomeData struct {
	Name string
}

var (
	passwordResetHTML = template.Must(template.New("reset_html").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">Reset your password</h2>
  <p>Hi <strong>{{.Name}}</strong>,</p>
  <p>We received a request to reset the password for your account. Click the button below to choose a new one.</p>
  <p style="text-align: center; margin: 30px 0;">
    <a href="{{.ResetLink}}" style="background-color: #4f46e5; color: #fff; padding: 12px 24px; border-radius: 6px; text-decoration: none;">Reset password</a>
  </p>
  <p>This link expires in {{.ExpiresIn}} and can only be used once.</p>
  <p>If you did not request a password reset, you can ignore this email.</p>
  <hr style="margin: 30px 0; border: none; border-top: 1px solid #eee;">
  <p style="color: #999; font-size: 12px;">This email was sent automatically by Secondhand Exchange. Please do not reply.</p>
</div>`))

	passwordResetText = textTemplate.Must(textTemplate.New("reset_text").Parse(`Hi {{.Name}},

We received a request to reset the password for your account.
Open the link below to choose a new one:

{{.ResetLink}}

This link expires in {{.ExpiresIn}} and can only be used once.
If you did not request a password reset, you can ignore this email.
`))

	welcomeHTML = template.Must(template.New("welcome_html").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">Welcome to Secondhand Exchange!</h2>
  <p>Hi <strong>{{.Name}}</strong>,</p>
  <p>Thanks for signing up. You can now:</p>
  <ul>
    <li>Browse and search second-hand listings</li>
    <li>Post your own items</li>
    <li>Reach sellers directly</li>
  </ul>
  <hr style="margin: 30px 0; border: none; border-top: 1px solid #eee;">
  <p style="color: #999; font-size: 12px;">This email was sent automatically by Secondhand Exchange. Please do not reply.</p>
</div>`))
)

// PasswordResetMessage renders the reset email for one recipient
func PasswordResetMessage(to string, data PasswordResetData) (Message, error) {
	var html, text bytes.Buffer
	if err := passwordResetHTML.Execute(&html, data); err != nil {
		return Message{}, err
	}
	if err := passwordResetText.Execute(&text, data); err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{to},
		Subject: "Reset your Secondhand Exchange password",
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

// WelcomeMessage renders the welcome email for a new account
func WelcomeMessage(to string, data WelcomeData) (Message, error) {
	var html bytes.Buffer
	if err := welcomeHTML.Execute(&html, data); err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{to},
		Subject: "Welcome to Secondhand Exchange!",
		HTML:    html.String(),
	}, nil
}
