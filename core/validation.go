package core

import (
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLen    = 6
	minUsernameLen    = 3
	minPhoneLen       = 10
	minDescriptionLen = 10
)

type validator struct {
	fields []FieldError
}

func (v *validator) add(field, msg string) {
	v.fields = append(v.fields, FieldError{Field: field, Message: msg})
}

func (v *validator) minLen(field, value string, n int, msg string) {
	if utf8.RuneCountInString(value) < n {
		v.add(field, msg)
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

// ValidateLogin checks login input.
func ValidateLogin(in LoginInput) error {
	v := &validator{}
	switch {
	case in.Email == "":
		v.add("email", "El correo electrónico es requerido")
	case !isEmail(in.Email):
		v.add("email", "Correo electrónico inválido")
	}
	switch {
	case in.Password == "":
		v.add("password", "La contraseña es requerida")
	default:
		v.minLen("password", in.Password, minPasswordLen, "La contraseña es demasiado corta")
	}
	return v.err()
}

// ValidateRegister checks registration input.
func ValidateRegister(in RegisterInput) error {
	v := &validator{}
	if !isEmail(in.Email) {
		v.add("email", "Correo electronico invalido")
	}
	v.minLen("password", in.Password, minPasswordLen, "La contraseña debe tener al menos 6 caracteres")
	v.minLen("username", in.Username, minUsernameLen, "El nombre debe tener al menos 3 caracteres")
	v.minLen("phone", in.Phone, minPhoneLen, "El telefono debe tener al menos 10 caracteres")
	v.minLen("description", in.Description, minDescriptionLen, "La descripcion debe tener al menos 10 caracteres")
	for _, sn := range in.SocialNetworks {
		if !isURL(sn.URL) {
			v.add("socialNetworks", "URL invalida")
		}
	}
	return v.err()
}

// ValidateEmail checks a bare email address, as used by forgot-password.
func ValidateEmail(email string) error {
	v := &validator{}
	if !isEmail(email) {
		v.add("email", "Correo electrónico inválido")
	}
	return v.err()
}

func isEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func isURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
