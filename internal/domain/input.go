package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRole — роль входного файла не распознана.
var ErrUnknownRole = errors.New("unknown input role")

// Role — логическая роль входного файла.
type Role string

const (
	// RolePrimary — матрица признаков узлов.
	RolePrimary Role = "primary"

	// RoleAdjacency — список рёбер графа.
	RoleAdjacency Role = "adjacency"
)

// Roles возвращает все роли в порядке отправки.
func Roles() []Role {
	return []Role{RolePrimary, RoleAdjacency}
}

// CanonicalFilename возвращает имя файла, под которым сервис ожидает роль.
func (r Role) CanonicalFilename() string {
	switch r {
	case RolePrimary:
		return "X.csv"
	case RoleAdjacency:
		return "edge_index.csv"
	default:
		return ""
	}
}

// FormField возвращает имя multipart-поля для роли.
func (r Role) FormField() string {
	switch r {
	case RolePrimary:
		return "file1"
	case RoleAdjacency:
		return "file2"
	default:
		return ""
	}
}

// Valid проверяет, что роль известна.
func (r Role) Valid() bool {
	return r == RolePrimary || r == RoleAdjacency
}

// ParseRole парсит строку в Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary":
		return RolePrimary, nil
	case "adjacency":
		return RoleAdjacency, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// DefaultContentType — тип содержимого, если вызывающий его не указал.
const DefaultContentType = "text/csv"

// InputPayload — входной файл с назначенной ролью.
//
// После создания не изменяется. Data передаётся как есть,
// модуль его не копирует и не модифицирует.
type InputPayload struct {
	// Role — роль файла.
	Role Role `json:"role"`

	// OriginalName — имя файла у пользователя (только для логов).
	OriginalName string `json:"original_name"`

	// ContentType — MIME-тип содержимого.
	ContentType string `json:"content_type"`

	// Data — содержимое файла.
	Data []byte `json:"-"`
}

// NewInputPayload создаёт InputPayload с типом содержимого по умолчанию.
func NewInputPayload(role Role, originalName string, data []byte) (InputPayload, error) {
	if !role.Valid() {
		return InputPayload{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return InputPayload{
		Role:         role,
		OriginalName: originalName,
		ContentType:  DefaultContentType,
		Data:         data,
	}, nil
}

// WithContentType возвращает копию с другим MIME-типом.
func (p InputPayload) WithContentType(contentType string) InputPayload {
	if contentType != "" {
		p.ContentType = contentType
	}
	return p
}

// CanonicalFilename возвращает имя, под которым файл уходит на сервис.
func (p InputPayload) CanonicalFilename() string {
	return p.Role.CanonicalFilename()
}

// Size возвращает размер содержимого в байтах.
func (p InputPayload) Size() int {
	return len(p.Data)
}
