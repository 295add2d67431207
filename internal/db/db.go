package db

var Schema = `
	CREATE TABLE IF NOT EXISTS tokens (
		token TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS stations (
		id TEXT PRIMARY KEY,
		lake TEXT NOT NULL,
		chlorophyll_calibration_id INTEGER,
		phycocyanin_calibration_id INTEGER,
		temperature_calibration_id INTEGER,
		FOREIGN KEY (chlorophyll_calibration_id) REFERENCES calibrations (id),
		FOREIGN KEY (phycocyanin_calibration_id) REFERENCES calibrations (id),
		FOREIGN KEY (temperature_calibration_id) REFERENCES calibrations (id)
	);
	CREATE TABLE IF NOT EXISTS calibration_methods (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS calibrations (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		variable TEXT NOT NULL,
		method_id INT NOT NULL,
		inputs TEXT NOT NULL,
		FOREIGN KEY (method_id) REFERENCES calibration_methods (id)
	);
	CREATE TABLE IF NOT EXISTS datasets (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		data BLOB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		dataset_id INTEGER,
		name TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		config TEXT NOT NULL,
		data BLOB NOT NULL,
		FOREIGN KEY (dataset_id) REFERENCES datasets (id)
	);`

var Tokens = `
	SELECT token
	FROM tokens`

var InsertToken = `
	INSERT
	INTO tokens (token)
	VALUES (?)`

var Stations = `
	SELECT *
	FROM stations`

var Station = `
	SELECT *
	FROM stations
	WHERE id = ?`

var InsertStation = `
	INSERT OR REPLACE
	INTO stations (id, lake, chlorophyll_calibration_id, phycocyanin_calibration_id, temperature_calibration_id)
	VALUES (?, ?, ?, ?, ?)`

var DeleteStation = `
	DELETE
	FROM stations
	WHERE id = ?`

var CalibrationMethods = `
	SELECT *
	FROM calibration_methods`

var CalibrationMethod = `
	SELECT *
	FROM calibration_methods
	WHERE id = ?`

var InsertCalibrationMethod = `
	INSERT
	INTO calibration_methods (name, description, data)
	VALUES (?, ?, ?)
	RETURNING id`

var DeleteCalibrationMethod = `
	DELETE
	FROM calibration_methods
	WHERE id = ?`

var Calibrations = `
	SELECT *
	FROM calibrations`

var Calibration = `
	SELECT *
	FROM calibrations
	WHERE id = ?`

var InsertCalibration = `
	INSERT
	INTO calibrations (name, variable, method_id, inputs)
	VALUES (?, ?, ?, ?)
	RETURNING id`

var DeleteCalibration = `
	DELETE
	FROM calibrations
	WHERE id = ?`

var Datasets = `
	SELECT id, name, timestamp, description
	FROM datasets`

var Dataset = `
	SELECT id, name, timestamp, description
	FROM datasets
	WHERE id = ?`

var DatasetData = `
	SELECT data
	FROM datasets
	WHERE id = ?`

var InsertDataset = `
	INSERT
	INTO datasets (name, timestamp, description, data)
	VALUES (?, ?, ?, ?)
	RETURNING id`

var DeleteDataset = `
	DELETE
	FROM datasets
	WHERE id = ?`

var UpdateDataset = `
	UPDATE datasets
	SET (name, description) = (?, ?)
	WHERE id = ?`

var Analyses = `
	SELECT id, dataset_id, name, timestamp, config
	FROM analyses`

var Analysis = `
	SELECT id, dataset_id, name, timestamp, config
	FROM analyses
	WHERE id = ?`

var AnalysisData = `
	SELECT name, data
	FROM analyses
	WHERE id = ?`

var InsertAnalysis = `
	INSERT
	INTO analyses (id, dataset_id, name, timestamp, config, data)
	VALUES (?, ?, ?, ?, ?, ?)`

var DeleteAnalysis = `
	DELETE
	FROM analyses
	WHERE id = ?`
