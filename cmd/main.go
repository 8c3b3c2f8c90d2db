package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ergochat/readline"
	pyemma "github.com/goldstar111/PyEMMA"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("list"),
	readline.PcItem("meta"),
	readline.PcItem("show"),
	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

const help = `list            all models in the container
meta <model>    stored metadata of one model
show <model>    the raw document, pretty-printed
exit            get out
`

func listModels(c *pyemma.Container) error {
	infos, err := c.ListModels()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(infos))
	for name := range infos {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		info := infos[name]
		fmt.Printf("%s\t%s\t%s\n", name, info.Created, info.Class)
	}
	return nil
}

func showMeta(c *pyemma.Container, name string) error {
	infos, err := c.ListModels()
	if err != nil {
		return err
	}
	info, ok := infos[name]
	if !ok {
		return fmt.Errorf("no model %q", name)
	}
	raw, err := json.MarshalIndent(&info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}

func showModel(c *pyemma.Container, name string) error {
	obj, err := c.Load(name)
	if err != nil {
		return err
	}
	fmt.Printf("%v\n", obj)
	return nil
}

func main() {
	if len(os.Args) != 2 {
		_, _ = fmt.Fprintln(os.Stderr, "usage: pyemma <container-path>")
		os.Exit(1)
	}
	c, err := pyemma.OpenContainer(os.Args[1], nil)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	defer c.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:              "pyemma> ",
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		AutoComplete:        completer,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.ReadLine()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "":
		case "help":
			fmt.Print(help)
		case "list":
			err = listModels(c)
		case "meta":
			err = showMeta(c, arg)
		case "show":
			err = showModel(c, arg)
		case "exit", "quit":
			return
		default:
			err = fmt.Errorf("unknown command %q, try help", cmd)
		}
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err.Error())
		}
	}
}
