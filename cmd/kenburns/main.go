package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ivlev/kenburns/internal/config"
	"github.com/ivlev/kenburns/internal/effects"
	"github.com/ivlev/kenburns/internal/engine"
	"github.com/ivlev/kenburns/internal/preview"
	"github.com/ivlev/kenburns/internal/source"
	"github.com/ivlev/kenburns/internal/system"
	"github.com/ivlev/kenburns/internal/video"
)

// version is set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	// Создаем нужные директории, если их нет
	dirs := []string{"input/audio", "input/pdf", "input/images", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	def := config.Default()

	configPtr := flag.String("config", "", "YAML-файл с настройками (флаги имеют приоритет)")
	flag.String("input", "", "Путь к PDF, изображению или папке с изображениями (по умолчанию: самый свежий файл в input/)")
	flag.String("output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	flag.Float64("duration", 0, "Общая длительность видео в секундах (если 0, рассчитывается из -cycles)")
	flag.Int("cycles", def.Cycles, "Количество проходов по изображениям")
	flag.Int("width", def.Width, "Ширина")
	flag.Int("height", def.Height, "Высота")
	flag.Int("fps", def.FPS, "FPS")
	flag.Int("workers", runtime.NumCPU(), "Потоки")
	flag.Float64("zoom", def.ZoomSize, "Максимальный масштаб (>= 1)")
	flag.Float64("fade", def.FadeDuration, "Длительность перехода (сек)")
	flag.Float64("display", 0, "Интервал между переходами (сек, 0 - 4x fade)")
	flag.String("direction", def.Direction, "Направление зума: in, out, alternate")
	flag.String("zoom-mode", def.ZoomMode, "Точка зума: center, top-left, top-right, bottom-left, bottom-right, random, smart")
	flag.Int64("seed", 0, "Seed для -zoom-mode random (0 - случайный)")
	flag.Int("dpi", def.DPI, "DPI для PDF")
	flag.String("audio", "", "Путь к аудио (по умолчанию: самый свежий файл в input/audio/)")
	flag.Bool("audio-sync", def.AudioSync, "Синхронизировать длительность видео с аудио")
	flag.String("preset", "", "Пресет формата: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")
	flag.Int("quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	flag.String("backend", def.Backend, "Рендер: compose (кадры в Go) или filter (zoompan + xfade в ffmpeg)")
	flag.String("endcard-url", "", "Добавить в конец слайд с QR-кодом на этот URL")
	flag.Bool("storyboard", false, "Записать раскадровку YAML рядом с видео")
	flag.Bool("stats", false, "Показать отчет о производительности")
	previewPtr := flag.Bool("preview", false, "Живой предпросмотр в терминале вместо рендера")

	flag.Parse()

	cfg := def
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка конфигурации: %v", err)
		}
		cfg = loaded
	}
	applyFlags(cfg)
	cfg.ApplyPreset()
	cfg.BuildVersion = version

	for _, note := range cfg.Normalize() {
		log.Printf("[!] %s", note)
	}

	if cfg.InputPath == "" {
		latest, err := findLatestInput()
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите PDF в input/pdf/ или изображения в input/images/", err)
		}
		cfg.InputPath = latest
		fmt.Printf("[*] Выбран файл: %s\n", cfg.InputPath)
	}

	src, err := openSource(cfg)
	if err != nil {
		log.Fatalf("[-] Ошибка инициализации источника: %v", err)
	}
	defer src.Close()

	if src.Len() == 0 {
		log.Fatalf("[-] Ошибка: в источнике нет страниц или изображений")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *previewPtr {
		if err := runPreview(ctx, cfg, src); err != nil {
			log.Fatalf("[-] Ошибка предпросмотра: %v", err)
		}
		return
	}

	resolveAudio(cfg)

	if cfg.OutputVideo == "" {
		cfg.OutputVideo = outputName(cfg)
	}

	if cfg.VideoEncoder == "" {
		cfg.VideoEncoder = system.GetBestH264Encoder()
	}
	if cfg.VideoEncoder != "libx264" {
		fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", cfg.VideoEncoder)
	}
	if cfg.Quality == 0 {
		cfg.Quality = system.DefaultQuality(cfg.VideoEncoder)
	}

	if cfg.ShowStats {
		fmt.Printf("[*] Хост: %s\n", system.HostSummary())
	}

	// Инициализируем зависимости
	ve := &video.FFmpegEncoder{}
	eff := &effects.KenBurnsEffect{}

	project := engine.NewVideoProject(cfg, src, ve, eff)
	if err := project.Run(ctx); err != nil {
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputVideo)
}

// applyFlags copies only the flags given on the command line, so a config
// file keeps its values for everything else.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		g := f.Value.(flag.Getter).Get()
		switch f.Name {
		case "input":
			cfg.InputPath = g.(string)
		case "output":
			cfg.OutputVideo = g.(string)
		case "duration":
			cfg.TotalDuration = g.(float64)
		case "cycles":
			cfg.Cycles = g.(int)
		case "width":
			cfg.Width = g.(int)
		case "height":
			cfg.Height = g.(int)
		case "fps":
			cfg.FPS = g.(int)
		case "workers":
			cfg.Workers = g.(int)
		case "zoom":
			cfg.ZoomSize = g.(float64)
		case "fade":
			cfg.FadeDuration = g.(float64)
		case "display":
			cfg.DisplayDuration = g.(float64)
		case "direction":
			cfg.Direction = g.(string)
		case "zoom-mode":
			cfg.ZoomMode = g.(string)
		case "seed":
			cfg.Seed = g.(int64)
		case "dpi":
			cfg.DPI = g.(int)
		case "audio":
			cfg.AudioPath = g.(string)
		case "audio-sync":
			cfg.AudioSync = g.(bool)
		case "preset":
			cfg.Preset = g.(string)
		case "quality":
			cfg.Quality = g.(int)
		case "backend":
			cfg.Backend = g.(string)
		case "endcard-url":
			cfg.EndCardURL = g.(string)
		case "storyboard":
			cfg.Storyboard = g.(bool)
		case "stats":
			cfg.ShowStats = g.(bool)
		}
	})
}

func findLatestInput() (string, error) {
	if latest, err := system.FindLatestPDF("input/pdf"); err == nil {
		return latest, nil
	}
	if _, err := system.FindLatestImage("input/images"); err == nil {
		return "input/images", nil
	}
	return "", fmt.Errorf("нет входных файлов")
}

func openSource(cfg *config.Config) (source.Source, error) {
	var src source.Source
	var err error

	if strings.HasSuffix(strings.ToLower(cfg.InputPath), ".pdf") {
		src, err = source.NewFitzPDFSource(cfg.InputPath, cfg.DPI)
	} else {
		src, err = source.NewImageSource(cfg.InputPath)
	}
	if err != nil {
		return nil, err
	}

	if cfg.EndCardURL != "" {
		src = source.Multi{src, source.NewEndCard(cfg.EndCardURL, cfg.Width, cfg.Height)}
	}
	return src, nil
}

// resolveAudio picks the latest track when none was given and, with
// AudioSync, stretches the video to the track length.
func resolveAudio(cfg *config.Config) {
	if cfg.AudioPath == "" {
		latest, err := system.FindLatestAudio("input/audio")
		if err == nil {
			cfg.AudioPath = latest
			fmt.Printf("[*] Выбрано аудио: %s\n", cfg.AudioPath)
		}
	}

	if cfg.AudioPath == "" || !cfg.AudioSync || cfg.TotalDuration > 0 {
		return
	}
	audioDur, err := system.GetAudioDuration(cfg.AudioPath)
	if err != nil {
		log.Printf("[!] Не удалось получить длительность аудио: %v", err)
		return
	}
	cfg.TotalDuration = audioDur.Seconds()
	fmt.Printf("[*] Длительность видео установлена по аудио: %.2fs\n", cfg.TotalDuration)
}

func outputName(cfg *config.Config) string {
	nameSource := cfg.InputPath
	if !strings.HasSuffix(strings.ToLower(cfg.InputPath), ".pdf") {
		if cfg.AudioPath != "" {
			nameSource = cfg.AudioPath
		} else if latestImg, err := system.FindLatestImage(cfg.InputPath); err == nil {
			// Пытаемся найти самое свежее изображение для имени файла
			nameSource = latestImg
		}
	}

	baseName := filepath.Base(nameSource)
	ext := filepath.Ext(baseName)
	nameOnly := strings.TrimSuffix(baseName, ext)
	cleanName := strings.ReplaceAll(nameOnly, " ", "_")
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join("output", fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
}

func runPreview(ctx context.Context, cfg *config.Config, src source.Source) error {
	images, err := source.LoadAll(ctx, src, cfg.Workers)
	if err != nil {
		return err
	}
	names := make([]string, len(images))
	for i := range names {
		names[i] = filepath.Base(src.Name(i))
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	err = preview.New(screen, cfg, images, names).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
