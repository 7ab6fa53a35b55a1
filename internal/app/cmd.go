package app

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はWebサーバーを起動する。
	CommandServe Command = "serve"
	// CommandMigrate は未適用のマイグレーションをすべて適用する。
	CommandMigrate Command = "migrate"
	// CommandMigrateDown は直近のマイグレーションを1つ戻す。
	CommandMigrateDown Command = "migrate-down"
	// CommandHealthcheck は稼働中サーバーの /health を確認する。
	// distrolessイメージにはcurlがないため、Dockerのヘルスチェックで使う。
	CommandHealthcheck Command = "healthcheck"
	// CommandHelp は利用方法を表示する。
	CommandHelp Command = "help"
)

// commandUsage は help で表示する各コマンドの説明。表示順を保つためスライスにする。
var commandUsage = []struct {
	usage string
	desc  string
}{
	{"serve", "inicia el servidor web (por defecto)"},
	{"migrate", "aplica las migraciones pendientes"},
	{"migrate down", "revierte la última migración"},
	{"healthcheck", "consulta /health del servidor local"},
	{"help", "muestra esta ayuda"},
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空、または未知のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "migrate":
		if len(args) > 1 && args[1] == "down" {
			return CommandMigrateDown
		}
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	case "help", "-h", "--help":
		return CommandHelp
	default:
		return CommandServe
	}
}

// PrintUsage はサブコマンドの一覧を書き出す。
func PrintUsage(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "uso: natillera <comando>")
	fmt.Fprintln(tw)
	for _, c := range commandUsage {
		fmt.Fprintf(tw, "  %s\t%s\n", c.usage, c.desc)
	}
	return tw.Flush()
}
