// seed fills the document store from the upstream card catalogs and local
// data files, without going through the HTTP API.
//
// Usage: go run ./cmd/seed [-config=<file>] [-lang=en|ja|all] <command> [args]
//
// Commands:
//
//	sets                      sets from TCGdex
//	cards <setId>...          cards of the given TCGdex sets
//	all-cards                 cards of every stored TCGdex set
//	popular                   PokemonTCG.io base-era sets
//	metadata                  PokemonTCG.io types, subtypes, supertypes and rarities
//	pokemon <file.json>       species from a JSON array
//	japanese-names <file>     Japanese species names
//	pokemon-list [-regroup]   rebuild (or regroup) the browse list
//	sprites [-source=auto] [-force]
//	legacy-sets               sets from PokemonTCG.io
//	legacy-cards <setId>...   cards of the given PokemonTCG.io sets
//	recount                   recount fetchedCardsCount on legacy sets
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/codyseavey/pokemon-collector/backend/internal/config"
	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/services"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a TOML config file")
	langFlag := flag.String("lang", "en", "language partition: en, ja or all")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <command> [args]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	lang, err := models.ParseLanguage(*langFlag)
	if err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	result, err := run(ctx, st, cfg, lang, flag.Arg(0), flag.Args()[1:])
	if err != nil {
		log.Fatalf("%s failed: %v", flag.Arg(0), err)
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func run(ctx context.Context, st store.DocumentStore, cfg *config.Config, lang models.Language, cmd string, args []string) (interface{}, error) {
	seeder := services.NewSeeder(st, services.NewTCGdexService())
	legacy := services.NewLegacySeeder(st, services.NewPokemonTCGService(cfg.PokemonTCG.APIKey))
	pokemon := services.NewPokemonSeeder(st)

	switch cmd {
	case "sets":
		return eachLanguage(ctx, lang, seeder.SeedSets)
	case "cards":
		if len(args) == 0 {
			return nil, fmt.Errorf("cards needs at least one set id")
		}
		return eachLanguage(ctx, lang, func(ctx context.Context, l models.Language) (*services.BatchResult, error) {
			return seeder.SeedCardsForSets(ctx, args, l)
		})
	case "all-cards":
		return eachLanguage(ctx, lang, seeder.SeedAllCards)
	case "popular":
		return legacy.SeedPopularSets(ctx)
	case "metadata":
		return legacy.SeedMetadata(ctx)
	case "pokemon":
		if len(args) != 1 {
			return nil, fmt.Errorf("pokemon needs a JSON file")
		}
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		list, err := services.ReadPokemonJSON(f)
		if err != nil {
			return nil, err
		}
		return pokemon.SeedPokemonCollection(ctx, list)
	case "japanese-names":
		if len(args) != 1 {
			return nil, fmt.Errorf("japanese-names needs a JSON file")
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, err
		}
		names, err := services.ParseJapaneseNames(data)
		if err != nil {
			return nil, err
		}
		return pokemon.SeedJapaneseNames(ctx, names)
	case "pokemon-list":
		fs := flag.NewFlagSet("pokemon-list", flag.ExitOnError)
		regroup := fs.Bool("regroup", false, "regroup existing entries instead of rebuilding")
		_ = fs.Parse(args)
		if *regroup {
			return pokemon.RegroupPokemonList(ctx)
		}
		return pokemon.BuildPokemonList(ctx)
	case "sprites":
		fs := flag.NewFlagSet("sprites", flag.ExitOnError)
		source := fs.String("source", string(services.SpriteSourceAuto), "auto, pokemondb, pokesprite or pokeapi")
		force := fs.Bool("force", false, "overwrite existing sprite URLs")
		gifs := fs.Bool("gifs", false, "update animated GIFs instead of sprites")
		_ = fs.Parse(args)
		if *gifs {
			return pokemon.UpdatePokemonGifs(ctx, *force)
		}
		return pokemon.UpdatePokemonSprites(ctx, services.SpriteSource(*source), *force)
	case "legacy-sets":
		return legacy.SeedSetsFromAPI(ctx)
	case "legacy-cards":
		if len(args) == 0 {
			return nil, fmt.Errorf("legacy-cards needs at least one set id")
		}
		return legacy.SeedCardsFromSets(ctx, args)
	case "recount":
		return legacy.UpdateAllSetCardCounts(ctx)
	}
	return nil, fmt.Errorf("unknown command %q", cmd)
}

func eachLanguage[T any](ctx context.Context, lang models.Language, fn func(context.Context, models.Language) (T, error)) (interface{}, error) {
	results := make(map[models.Language]T)
	for _, l := range lang.Expand() {
		r, err := fn(ctx, l)
		if err != nil {
			return results, err
		}
		results[l] = r
		log.Printf("Seed: finished %s", l)
	}
	return results, nil
}
