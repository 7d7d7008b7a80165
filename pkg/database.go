package nwcal

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx"
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

type positionCalibRow struct {
	Bar int     `db:"Bar"`
	P0  float64 `db:"P0"`
	P1  float64 `db:"P1"`
}

// GetPositionCalib reads the time-difference-to-position constants of every
// bar of a wall for one run. Rows are keyed by run range in the database, so
// the matching row is the one whose [MinRun, MaxRun] covers the run.
func GetPositionCalib(db *sqlx.DB, wall string, run int) (map[int][2]float64, error) {
	query := "SELECT Bar, P0, P1 FROM NW%sPositionCalib WHERE MinRun <= %d AND MaxRun >= %d"
	query = fmt.Sprintf(query, strings.ToUpper(wall), run, run)

	logger.Info(fmt.Sprintf("Reading position calibration for run %d", run), "database")

	rows, err := db.Queryx(query)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	constants := make(map[int][2]float64)
	for rows.Next() {
		result := positionCalibRow{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		constants[result.Bar] = [2]float64{result.P0, result.P1}
	}
	if len(constants) == 0 {
		return nil, &ErrNoCalibration{Run: run, Bar: -1}
	}
	return constants, nil
}
