// Package export сохраняет таблицу результата в xlsx (excelize).
package export
