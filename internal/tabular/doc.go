// Package tabular преобразует текстовый ответ сервиса в таблицу.
//
// Включает:
//   - decoder.go — разбор текста с разделителем-запятой в domain.Table
//
// Декодер намеренно нестрогий: короткие строки дают отсутствующие ячейки,
// лишние поля отбрасываются, ошибок разбора не бывает.
// Кавычки и экранирование не поддерживаются: поле с запятой внутри
// представить нельзя.
package tabular
