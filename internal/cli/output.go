package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Output форматирует результаты команд: таблицы для людей,
// JSON для скриптов (--json).
//
// Данные идут в stdout, статусные сообщения — в stderr, чтобы
// вывод можно было передавать по конвейеру в jq и дальше.
type Output struct {
	jsonMode bool
	w        io.Writer
	errW     io.Writer
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        os.Stdout,
		errW:     os.Stderr,
	}
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
// jsonData — полный объект ответа, таблица — его сокращённый вид.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выводит строки через tabwriter с заголовком и разделителем.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// Snapshot выводит состояние узлов execution на последнем тике.
//
// Узлы сортируются по ID, чтобы вывод был стабилен между вызовами;
// колонка TICK показывает LastUpdatedTick узла (retained-узлы
// отстают от счётчика execution).
func (o *Output) Snapshot(snap *SnapshotResponse) {
	if o.jsonMode {
		o.JSON(snap)
		return
	}

	ids := make([]string, 0, len(snap.NodeStates))
	for id := range snap.NodeStates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		st := snap.NodeStates[id]
		rows = append(rows, []string{
			id,
			FormatNodeValue(st.Value),
			st.Error,
			strconv.FormatBool(st.IsActive),
			strconv.Itoa(st.LastUpdatedTick),
		})
	}

	fmt.Fprintf(o.errW, "execution %s  status=%s  tick=%d\n",
		snap.ExecutionID, snap.Status, snap.Tick)
	o.Table([]string{"NODE", "VALUE", "ERROR", "ACTIVE", "TICK"}, rows)
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}

// FormatNodeValue приводит значение узла к компактной строке.
//
// Значения приходят из JSON, поэтому числа — это float64; целые
// выводятся без дробной части, nil — пустой колонкой.
func FormatNodeValue(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'g', 6, 64)
	case bool:
		return strconv.FormatBool(n)
	default:
		return fmt.Sprintf("%v", v)
	}
}
