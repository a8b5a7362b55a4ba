package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"sonata/internal/gateway"
	"sonata/internal/library"
	"sonata/internal/player"
	"sonata/internal/session"
	"sonata/pkg/models"
)

// consoleMedia is a transport sink for headless use: it reports what a real
// audio backend would do instead of producing sound.
type consoleMedia struct {
	logger *logrus.Logger
}

func (m *consoleMedia) Load(url string) error {
	m.logger.WithField("url", url).Debug("media: load")
	return nil
}

func (m *consoleMedia) Play() error {
	m.logger.Debug("media: play")
	return nil
}

func (m *consoleMedia) Pause() {
	m.logger.Debug("media: pause")
}

func (m *consoleMedia) Seek(seconds float64) {
	m.logger.WithField("position", seconds).Debug("media: seek")
}

func (m *consoleMedia) SetVolume(level float64) {
	m.logger.WithField("level", level).Debug("media: volume")
}

type cli struct {
	client  *gateway.Client
	store   *session.Store
	lib     *library.Container
	queue   *player.Queue
	adapter *player.Adapter
	catalog []models.Track
	logger  *logrus.Logger
}

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "sonata server URL")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	store, err := session.NewStore(sessionPath())
	if err != nil {
		logger.WithError(err).Fatal("Could not open session store")
	}

	client := gateway.NewClient(*serverURL, store)
	queue := player.NewQueue()
	adapter := player.NewAdapter(queue, &consoleMedia{logger: logger}, client.StreamURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go adapter.Run(ctx)
	go func() {
		for err := range adapter.Errors() {
			logger.WithError(err).Warn("Playback error")
		}
	}()

	app := &cli{
		client:  client,
		store:   store,
		lib:     library.NewContainer(client),
		queue:   queue,
		adapter: adapter,
		logger:  logger,
	}

	if sess, ok := store.Current(); ok {
		fmt.Printf("Signed in as %s (%s)\n", sess.User.Name, sess.User.Email)
		if err := app.lib.LoadInitial(ctx); err != nil {
			logger.WithError(err).Warn("Could not load library state")
		}
	} else {
		fmt.Println("Not signed in. Use 'login' or 'register'.")
	}

	app.repl(ctx)
}

func sessionPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}
	return filepath.Join(configDir, "sonata", "session.toml")
}

func (c *cli) repl(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Type 'help' for commands.")

	for {
		fmt.Print("sonata> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		if cmd == "quit" || cmd == "exit" {
			return
		}
		if err := c.dispatch(ctx, cmd, args); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		printHelp()
	case "register":
		return c.register(ctx)
	case "login":
		return c.login(ctx)
	case "logout":
		if err := c.client.Logout(); err != nil {
			return err
		}
		fmt.Println("Signed out.")
	case "songs":
		return c.listSongs(ctx)
	case "search":
		return c.search(ctx, strings.Join(args, " "))
	case "play":
		return c.play(ctx, args)
	case "pause":
		c.adapter.TogglePlay()
		fmt.Printf("State: %s\n", c.queue.GetState())
	case "next":
		c.queue.Advance()
		c.printCurrent()
	case "jump":
		return c.jump(args)
	case "queue":
		c.printQueue()
	case "shuffle":
		c.queue.ToggleShuffle()
		fmt.Printf("Shuffle: %v\n", c.queue.ShuffleEnabled())
	case "repeat":
		c.queue.ToggleRepeat()
		fmt.Printf("Repeat: %v\n", c.queue.RepeatEnabled())
	case "seek":
		return c.seek(args)
	case "vol":
		return c.volume(args)
	case "mute":
		c.adapter.ToggleMute()
		level, muted := c.adapter.Volume()
		fmt.Printf("Volume: %.2f muted=%v\n", level, muted)
	case "like":
		return c.toggleLike(ctx, args)
	case "save":
		return c.toggleSave(ctx, args)
	case "profile":
		return c.profile(ctx)
	case "playlists":
		return c.playlists(ctx)
	case "playlist":
		return c.showPlaylist(ctx, args)
	case "mkpl":
		return c.createPlaylist(ctx, args)
	case "rmpl":
		return c.deletePlaylist(ctx, args)
	case "pladd":
		return c.playlistAdd(ctx, args)
	case "plrm":
		return c.playlistRemove(ctx, args)
	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
	return nil
}

func printHelp() {
	fmt.Print(`Commands:
  register / login / logout         account
  songs / search <q>                catalog
  play <id> / pause / next          playback
  jump <n> / queue                  queue
  shuffle / repeat                  modes
  seek <sec> / vol <0..1> / mute    transport
  like <id> / save <id> / profile   library
  playlists / playlist <id>         playlists
  mkpl <name> / rmpl <id>
  pladd <pl> <track> / plrm <pl> <track>
  quit
`)
}

func (c *cli) register(ctx context.Context) error {
	name := prompt("Name: ")
	email := prompt("Email: ")
	password, err := promptSecret("Password: ")
	if err != nil {
		return err
	}

	resp, err := c.client.Register(ctx, name, email, password)
	if err != nil {
		return err
	}
	fmt.Printf("Registered as %s\n", resp.User.Email)
	return c.lib.LoadInitial(ctx)
}

func (c *cli) login(ctx context.Context) error {
	email := prompt("Email: ")
	password, err := promptSecret("Password: ")
	if err != nil {
		return err
	}

	resp, err := c.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s\n", resp.User.Name)
	return c.lib.LoadInitial(ctx)
}

func (c *cli) listSongs(ctx context.Context) error {
	tracks, err := c.client.GetSongs(ctx)
	if err != nil {
		return err
	}
	c.catalog = tracks
	c.printTracks(tracks)
	return nil
}

func (c *cli) search(ctx context.Context, query string) error {
	if query == "" {
		return fmt.Errorf("usage: search <query>")
	}
	tracks, err := c.client.SearchSongs(ctx, query)
	if err != nil {
		return err
	}
	c.printTracks(tracks)
	return nil
}

// play sets the given track as current, with the last listed catalog as the
// playback context.
func (c *cli) play(ctx context.Context, args []string) error {
	trackID, err := argInt(args, 0, "play <track-id>")
	if err != nil {
		return err
	}

	if len(c.catalog) == 0 {
		tracks, err := c.client.GetSongs(ctx)
		if err != nil {
			return err
		}
		c.catalog = tracks
	}

	var target *models.Track
	for i := range c.catalog {
		if c.catalog[i].ID == trackID {
			target = &c.catalog[i]
			break
		}
	}
	if target == nil {
		track, err := c.client.GetSong(ctx, trackID)
		if err != nil {
			return err
		}
		target = &track
	}

	c.queue.PlayTrack(*target, c.catalog)
	if err := c.client.RecordPlay(ctx, target.ID); err != nil {
		c.logger.WithError(err).Debug("Could not record play")
	}
	c.printCurrent()
	return nil
}

func (c *cli) jump(args []string) error {
	index, err := argInt(args, 0, "jump <queue-index>")
	if err != nil {
		return err
	}
	if err := c.queue.JumpTo(index); err != nil {
		return err
	}
	c.printCurrent()
	return nil
}

func (c *cli) seek(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: seek <seconds>")
	}
	seconds, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("usage: seek <seconds>")
	}
	c.adapter.Seek(seconds)
	return nil
}

func (c *cli) volume(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: vol <0..1>")
	}
	level, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("usage: vol <0..1>")
	}
	c.adapter.SetVolume(level)
	current, muted := c.adapter.Volume()
	fmt.Printf("Volume: %.2f muted=%v\n", current, muted)
	return nil
}

func (c *cli) toggleLike(ctx context.Context, args []string) error {
	trackID, err := argInt(args, 0, "like <track-id>")
	if err != nil {
		return err
	}
	track, err := c.client.GetSong(ctx, trackID)
	if err != nil {
		return err
	}
	result, err := c.lib.ToggleLike(ctx, track)
	if err != nil {
		return err
	}
	fmt.Printf("Liked: %v (%d likes)\n", result.Liked, result.LikesCount)
	return nil
}

func (c *cli) toggleSave(ctx context.Context, args []string) error {
	trackID, err := argInt(args, 0, "save <track-id>")
	if err != nil {
		return err
	}
	track, err := c.client.GetSong(ctx, trackID)
	if err != nil {
		return err
	}
	result, err := c.lib.ToggleSave(ctx, track)
	if err != nil {
		return err
	}
	fmt.Printf("Saved: %v\n", result.Saved)
	return nil
}

func (c *cli) profile(ctx context.Context) error {
	if err := c.lib.LoadInitial(ctx); err != nil {
		return err
	}
	fmt.Println("Liked songs:")
	c.printTracks(c.lib.LikedTracks())
	fmt.Println("Saved songs:")
	c.printTracks(c.lib.SavedTracks())
	return nil
}

func (c *cli) playlists(ctx context.Context) error {
	if err := c.lib.LoadInitial(ctx); err != nil {
		return err
	}
	for _, p := range c.lib.Playlists() {
		visibility := "private"
		if p.IsPublic {
			visibility = "public"
		}
		fmt.Printf("%4d  %-30s %s (%d tracks)\n", p.ID, p.Name, visibility, p.TrackCount)
	}
	return nil
}

func (c *cli) showPlaylist(ctx context.Context, args []string) error {
	playlistID, err := argInt(args, 0, "playlist <id>")
	if err != nil {
		return err
	}
	playlist, err := c.client.GetPlaylist(ctx, playlistID)
	if err != nil {
		return err
	}
	fmt.Printf("%s — %s\n", playlist.Name, playlist.Description)
	c.printTracks(playlist.Tracks)
	return nil
}

func (c *cli) createPlaylist(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: mkpl <name>")
	}
	playlist, err := c.lib.CreatePlaylist(ctx, strings.Join(args, " "), "", false, "", nil)
	if err != nil {
		return err
	}
	fmt.Printf("Created playlist %d: %s\n", playlist.ID, playlist.Name)
	return nil
}

func (c *cli) deletePlaylist(ctx context.Context, args []string) error {
	playlistID, err := argInt(args, 0, "rmpl <id>")
	if err != nil {
		return err
	}
	if err := c.lib.DeletePlaylist(ctx, playlistID); err != nil {
		return err
	}
	fmt.Println("Deleted.")
	return nil
}

func (c *cli) playlistAdd(ctx context.Context, args []string) error {
	playlistID, err := argInt(args, 0, "pladd <playlist-id> <track-id>")
	if err != nil {
		return err
	}
	trackID, err := argInt(args, 1, "pladd <playlist-id> <track-id>")
	if err != nil {
		return err
	}
	track, err := c.client.GetSong(ctx, trackID)
	if err != nil {
		return err
	}
	return c.lib.AddTrackToPlaylist(ctx, playlistID, track)
}

func (c *cli) playlistRemove(ctx context.Context, args []string) error {
	playlistID, err := argInt(args, 0, "plrm <playlist-id> <track-id>")
	if err != nil {
		return err
	}
	trackID, err := argInt(args, 1, "plrm <playlist-id> <track-id>")
	if err != nil {
		return err
	}
	track, err := c.client.GetSong(ctx, trackID)
	if err != nil {
		return err
	}
	return c.lib.RemoveTrackFromPlaylist(ctx, playlistID, track)
}

func (c *cli) printCurrent() {
	if track, ok := c.queue.CurrentTrack(); ok {
		fmt.Printf("Now: %s — %s [%s]\n", track.Artist, track.Title, c.queue.GetState())
	} else {
		fmt.Println("Queue is empty.")
	}
}

func (c *cli) printQueue() {
	tracks := c.queue.Tracks()
	if len(tracks) == 0 {
		fmt.Println("Queue is empty.")
		return
	}
	for i, track := range tracks {
		marker := " "
		if i == 0 {
			marker = ">"
		}
		fmt.Printf("%s %3d  %s — %s\n", marker, i, track.Artist, track.Title)
	}
}

func (c *cli) printTracks(tracks []models.Track) {
	for _, track := range tracks {
		liked := " "
		if c.lib.IsLiked(track.ID) {
			liked = "♥"
		}
		fmt.Printf("%4d %s %-30s %-20s %s (%d:%02d)\n",
			track.ID, liked, track.Title, track.Artist, track.Album,
			track.Duration/60, track.Duration%60)
	}
}

func prompt(label string) string {
	fmt.Print(label)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

func promptSecret(label string) (string, error) {
	fmt.Print(label)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func argInt(args []string, index int, usage string) (int, error) {
	if index >= len(args) {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	value, err := strconv.Atoi(args[index])
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	return value, nil
}
