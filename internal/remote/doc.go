// Package remote — HTTP-клиент сервиса анализа.
//
// Сервис — внешний чёрный ящик с двумя endpoint'ами:
//   - POST /upload  — multipart с полями file1 (X.csv) и file2 (edge_index.csv)
//   - POST /analyze — пустое тело, в ответе текст с разделителем-запятой
//
// Любой 2xx — успех. Не-2xx превращается в *StatusError (ErrRejected),
// сетевые ошибки оборачиваются в ErrTransport.
package remote
