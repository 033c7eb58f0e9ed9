package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aryan0dhankhar/memedata/internal/client"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "auth":
		err = handleAuth(args)
	case "users":
		err = handleUsers(args)
	case "texts":
		err = handleTexts(args)
	case "images":
		err = handleImages(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

func handleAuth(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: memedata auth <login|logout|refresh|who>")
		return nil
	}

	switch args[0] {
	case "login":
		return loginUser(args[1:])
	case "logout":
		return logoutUser()
	case "refresh":
		return refreshToken()
	case "who":
		return whoAmI()
	default:
		return fmt.Errorf("unknown auth command: %s", args[0])
	}
}

func handleUsers(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: memedata users <register|list|get|delete>")
		return nil
	}

	switch args[0] {
	case "register":
		return registerUser(args[1:])
	case "list":
		return listUsers()
	case "get":
		return getUser(args[1:])
	case "delete":
		return deleteUser(args[1:])
	default:
		return fmt.Errorf("unknown users command: %s", args[0])
	}
}

func handleTexts(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: memedata texts <list|get|create|update|delete>")
		return nil
	}

	switch args[0] {
	case "list":
		return listTexts(args[1:])
	case "get":
		return getText(args[1:])
	case "create":
		return createText(args[1:])
	case "update":
		return updateText(args[1:])
	case "delete":
		return deleteText(args[1:])
	default:
		return fmt.Errorf("unknown texts command: %s", args[0])
	}
}

func handleImages(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: memedata images <list|upload|get|delete>")
		return nil
	}

	switch args[0] {
	case "list":
		return listImages()
	case "upload":
		return uploadImage(args[1:])
	case "get":
		return getImage(args[1:])
	case "delete":
		return deleteImage(args[1:])
	default:
		return fmt.Errorf("unknown images command: %s", args[0])
	}
}

// Auth commands
func loginUser(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "username")
	password := fs.String("password", os.Getenv("MEMEDATA_PASSWORD"), "password (default $MEMEDATA_PASSWORD)")
	_ = fs.Parse(args)

	if *username == "" || *password == "" {
		fs.PrintDefaults()
		return errors.New("username and password are required")
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	res, err := c.Login(ctx, *username, *password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Printf("✓ %s\n", res.Message)
	return nil
}

func logoutUser() error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	if err := c.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	fmt.Println("✓ Logged out")
	return nil
}

func refreshToken() error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	if _, err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	fmt.Println("✓ Access token refreshed")
	return nil
}

func whoAmI() error {
	c, err := newClient()
	if err != nil {
		return err
	}
	tokens := c.Tokens()
	if tokens.AccessToken == "" {
		fmt.Println("Not logged in")
		return nil
	}
	fmt.Printf("✓ Logged in as %s\n", tokens.Username)
	return nil
}

// User commands
func registerUser(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password")
	_ = fs.Parse(args)

	if *username == "" || *password == "" {
		fs.PrintDefaults()
		return errors.New("username and password are required")
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	id, err := c.Register(ctx, *username, *password)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	fmt.Printf("✓ User registered: %s (id %d)\n", *username, id)
	return nil
}

func listUsers() error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	users, err := c.ListUsers(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Username, u.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func getUser(args []string) error {
	id, err := idArg(args, "users get <user-id>")
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	u, err := c.GetUser(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("%d\t%s\t%s\n", u.ID, u.Username, u.CreatedAt.Format(time.RFC3339))
	return nil
}

func deleteUser(args []string) error {
	id, err := idArg(args, "users delete <user-id>")
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	if err := c.DeleteUser(ctx, id); err != nil {
		return err
	}
	fmt.Printf("✓ User %d deleted\n", id)
	return nil
}

// Text commands
func listTexts(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	allTags := fs.String("all-tags", "", "comma-separated tags every result must carry")
	anyTags := fs.String("any-tags", "", "comma-separated tags of which results carry at least one")
	noTags := fs.String("no-tags", "", "comma-separated tags results must not carry")
	dateFrom := fs.String("from", "", "first creation day, YYYY-MM-DD")
	dateTo := fs.String("to", "", "last creation day, YYYY-MM-DD")
	pageSize := fs.Int("page-size", 100, "texts fetched per request")
	_ = fs.Parse(args)

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	q := client.TextQuery{
		AllTags:    splitList(*allTags),
		AnyTags:    splitList(*anyTags),
		NoTags:     splitList(*noTags),
		DateFrom:   *dateFrom,
		DateTo:     *dateTo,
		MaxResults: *pageSize,
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tTAGS\tCONTENT")
	for text, err := range c.IterTexts(ctx, q) {
		if err != nil {
			w.Flush()
			return err
		}
		printText(w, text)
	}
	return w.Flush()
}

func getText(args []string) error {
	id, err := idArg(args, "texts get <text-id>")
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	text, err := c.GetText(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println(text.Content)
	fmt.Printf("tags: %s\n", strings.Join(text.Tags, ","))
	return nil
}

func createText(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	content := fs.String("content", "", "text content")
	tags := fs.String("tags", "", "comma-separated tags")
	_ = fs.Parse(args)

	if *content == "" {
		fs.PrintDefaults()
		return errors.New("content is required")
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	text, err := c.CreateText(ctx, *content, splitList(*tags))
	if err != nil {
		return err
	}
	fmt.Printf("✓ Text created: %d\n", text.ID)
	return nil
}

func updateText(args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	id := fs.Int64("id", 0, "text id")
	content := fs.String("content", "", "new content")
	tags := fs.String("tags", "", "new comma-separated tags")
	clearTags := fs.Bool("clear-tags", false, "remove every tag")
	_ = fs.Parse(args)

	if *id <= 0 {
		fs.PrintDefaults()
		return errors.New("id is required")
	}

	var patch client.TextPatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "content":
			patch.Content = content
		case "tags":
			list := splitList(*tags)
			patch.Tags = &list
		}
	})
	if *clearTags {
		empty := []string{}
		patch.Tags = &empty
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	text, err := c.UpdateText(ctx, *id, patch)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Text %d updated\n", text.ID)
	return nil
}

func deleteText(args []string) error {
	id, err := idArg(args, "texts delete <text-id>")
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	if err := c.DeleteText(ctx, id); err != nil {
		return err
	}
	fmt.Printf("✓ Text %d deleted\n", id)
	return nil
}

// Image commands
func listImages() error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	images, err := c.ListImages(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMIMETYPE\tBYTES\tCREATED")
	for _, img := range images {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", img.ID, img.MimeType, img.SizeBytes, img.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func uploadImage(args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	file := fs.String("file", "", "path to a png or jpeg image")
	replace := fs.Int64("replace", 0, "id of an image to overwrite")
	_ = fs.Parse(args)

	if *file == "" {
		fs.PrintDefaults()
		return errors.New("file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	var img *client.Image
	if *replace > 0 {
		img, err = c.ReplaceImage(ctx, *replace, *file, f)
	} else {
		img, err = c.UploadImage(ctx, *file, f)
	}
	if err != nil {
		return err
	}
	fmt.Printf("✓ Image %d stored (%s, %d bytes)\n", img.ID, img.MimeType, img.SizeBytes)
	return nil
}

func getImage(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	id := fs.Int64("id", 0, "image id")
	out := fs.String("out", "", "write the image to this path instead of printing metadata")
	_ = fs.Parse(args)

	if *id <= 0 {
		fs.PrintDefaults()
		return errors.New("id is required")
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	if *out == "" {
		img, err := c.GetImage(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Printf("%d\t%s\t%d bytes\n", img.ID, img.MimeType, img.SizeBytes)
		return nil
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	mimeType, err := c.DownloadImage(ctx, *id, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Printf("✓ Saved %s to %s\n", mimeType, *out)
	return nil
}

func deleteImage(args []string) error {
	id, err := idArg(args, "images delete <image-id>")
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	if err := c.DeleteImage(ctx, id); err != nil {
		return err
	}
	fmt.Printf("✓ Image %d deleted\n", id)
	return nil
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("MEMEDATA_API"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

// newClient restores the saved session. With MEMEDATA_PASSWORD set the
// client can log in again once both tokens have expired.
func newClient() (*client.Client, error) {
	path, err := client.DefaultTokenPath()
	if err != nil {
		return nil, err
	}
	store := client.NewFileTokenStore(path)
	opts := []client.Option{client.WithTokenStore(store)}

	if password := os.Getenv("MEMEDATA_PASSWORD"); password != "" {
		saved, err := store.Load()
		if err != nil {
			return nil, err
		}
		if saved.Username != "" {
			opts = append(opts, client.WithCredentials(saved.Username, password))
		}
	}
	return client.New(getAPIURL(), opts...)
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Minute)
}

func idArg(args []string, usage string) (int64, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("usage: memedata %s", usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printText(w io.Writer, t client.Text) {
	content := t.Content
	if r := []rune(content); len(r) > 60 {
		content = string(r[:57]) + "..."
	}
	content = strings.ReplaceAll(content, "\n", " ")
	fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t.CreatedAt.Format("2006-01-02"), strings.Join(t.Tags, ","), content)
}

func printUsage() {
	fmt.Print(`memedata CLI

Usage:
  memedata <command> [options]

Commands:
  auth    Session management (login, logout, refresh, who)
  users   Accounts (register, list, get, delete) - listing and deleting require privileges
  texts   Text snippets (list, get, create, update, delete)
  images  Images (list, upload, get, delete)
  help    Show this help message

Environment Variables:
  MEMEDATA_API        API endpoint (default: http://localhost:8080)
  MEMEDATA_PASSWORD   Password used to log in again when the session expires

Examples:
  memedata auth login -username alice -password 'correct horse'
  memedata texts create -content "hello" -tags greeting,short
  memedata texts list -all-tags greeting -from 2024-01-01
  memedata images upload -file cat.png
  memedata images get -id 3 -out cat.png
`)
}
